package recommender

import (
	"math"
	"strconv"
	"strings"

	"github.com/opscart/rds-metrics-collector/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	// MaxASV2ACU is the Aurora Serverless v2 capacity ceiling
	MaxASV2ACU = 256.0
	// HoursPerMonth is the average month used for monthly estimates
	HoursPerMonth = 730.0
)

// Provisioned-to-serverless ACU ratios per instance family
const (
	RatioMemoryOptimized  = 4
	RatioComputeOptimized = 1
	RatioGeneralPurpose   = 2
)

// Round rounds half to even on the exact binary value of a float, so 2.675
// (stored as 2.67499...) gives 2.67. NaN and infinities pass through.
func Round(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	// 40 digits separate any binary value from a decimal tie at these scales
	exact, err := decimal.NewFromString(strconv.FormatFloat(value, 'f', 40, 64))
	if err != nil {
		return value
	}
	return exact.RoundBank(places).InexactFloat64()
}

// RoundUpToHalf rounds up to the next multiple of 0.5 (0.77 -> 1.0, 1.11 -> 1.5)
func RoundUpToHalf(value float64) float64 {
	return math.Ceil(value*2) / 2
}

// MonthlyCost projects an hourly rate to a month, nil in nil out
func MonthlyCost(hourly *float64) *float64 {
	if hourly == nil {
		return nil
	}
	return ptr(Round(*hourly*HoursPerMonth, 2))
}

// MigrationPath classifies how an instance would move to Serverless v2
func MigrationPath(platformType, instanceClass string) string {
	if instanceClass == models.ServerlessClass {
		return models.PathNoAction
	}
	if platformType == models.PlatformAurora {
		return models.PathInPlace
	}
	return models.PathPlatform
}

// InstanceRatio returns the provisioned:serverless ratio for a class, 0 when the family is unknown
func InstanceRatio(instanceClass string) int {
	switch {
	case instanceClass == models.ServerlessClass:
		return 1
	case strings.HasPrefix(instanceClass, "db.r"):
		return RatioMemoryOptimized
	case strings.HasPrefix(instanceClass, "db.c"):
		return RatioComputeOptimized
	case strings.HasPrefix(instanceClass, "db.m"), strings.HasPrefix(instanceClass, "db.t"):
		return RatioGeneralPurpose
	}
	return 0
}

// GrowthCapacityFactor is the headroom between the current provisioned ACU equivalent and the ACU ceiling
func GrowthCapacityFactor(instanceClass string, vcpu models.Capacity) *float64 {
	if instanceClass == models.ServerlessClass || !vcpu.Known() {
		return nil
	}

	provisioned := *vcpu.Value * float64(InstanceRatio(instanceClass))
	if provisioned <= 0 {
		return nil
	}

	return ptr(Round((MaxASV2ACU-provisioned)/provisioned, 2))
}

// VCPUUtilization converts P95 CPU percent into busy vCPUs
func VCPUUtilization(p95CPU *float64, vcpu models.Capacity, instanceClass string) *float64 {
	if instanceClass == models.ServerlessClass || p95CPU == nil || !vcpu.Known() {
		return nil
	}
	return ptr(Round(*p95CPU/100*(*vcpu.Value), 2))
}

// ActualEstimateACU sizes ACUs from P95 vCPU utilization
func ActualEstimateACU(vcpuUtilization *float64, instanceClass string) *float64 {
	if instanceClass == models.ServerlessClass || vcpuUtilization == nil {
		return nil
	}
	return ptr(RoundUpToHalf(*vcpuUtilization * float64(InstanceRatio(instanceClass))))
}

// AdjustedEstimateACU sizes ACUs from a 95/5 blend of P95 and max CPU
func AdjustedEstimateACU(p95CPU, maxCPU *float64, vcpu models.Capacity, instanceClass string) *float64 {
	if instanceClass == models.ServerlessClass || p95CPU == nil || maxCPU == nil || !vcpu.Known() {
		return nil
	}

	weighted := (*p95CPU*0.95 + *maxCPU*0.05) / 100
	return ptr(RoundUpToHalf(weighted * (*vcpu.Value) * float64(InstanceRatio(instanceClass))))
}

// EstimateCost prices an ACU estimate per hour
func EstimateCost(acu *float64, acuPrice float64, instanceClass string) *float64 {
	if instanceClass == models.ServerlessClass || acu == nil {
		return nil
	}
	return ptr(Round(*acu*acuPrice, 2))
}

// Estimate fills the migration fields of one hourly bucket.
// Usage pattern fields are left for the classifier.
func Estimate(profile models.InstanceProfile, p95CPU, maxCPU *float64) models.MigrationFields {
	class := profile.InstanceClass

	vcpuUtil := VCPUUtilization(p95CPU, profile.VCPU, class)
	actual := ActualEstimateACU(vcpuUtil, class)
	adjusted := AdjustedEstimateACU(p95CPU, maxCPU, profile.VCPU, class)

	return models.MigrationFields{
		ASV2MigrationPath:               MigrationPath(profile.PlatformType(), class),
		GrowthCapacityFactor:            GrowthCapacityFactor(class, profile.VCPU),
		VCPUUtilization:                 vcpuUtil,
		ActualEstimateACU:               actual,
		ActualEstimateACUPricePerHour:   EstimateCost(actual, profile.ACUPricePerHour, class),
		AdjustedEstimateACU:             adjusted,
		AdjustedEstimateACUPricePerHour: EstimateCost(adjusted, profile.ACUPricePerHour, class),
	}
}

func ptr(v float64) *float64 {
	return &v
}
