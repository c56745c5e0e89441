package model

// 套餐常量。计费流程里 plan 和 sub_limit 永远成对写入，
// 额度以这张表为准，不允许出现 plan 和额度不一致的行。
const (
	PlanFree = "FREE"
	PlanPro  = "PRO"
	PlanTeam = "TEAM"
)

const (
	CycleMonthly = "MONTHLY"
	CycleYearly  = "YEARLY"
)

// planAllowances 各套餐的周期 token 额度
var planAllowances = map[string]int64{
	PlanFree: 50000,
	PlanPro:  500000,
	PlanTeam: 2000000,
}

// AllowanceFor 返回套餐对应的标准额度，未知套餐按 FREE 处理
func AllowanceFor(plan string) int64 {
	if allowance, ok := planAllowances[plan]; ok {
		return allowance
	}
	return planAllowances[PlanFree]
}

// ValidPlan 判断是否为已知套餐
func ValidPlan(plan string) bool {
	_, ok := planAllowances[plan]
	return ok
}
