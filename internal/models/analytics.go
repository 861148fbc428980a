package models

import "time"

// AnalyticsKind selects which counters an analytics update touches.
type AnalyticsKind string

const (
	// AnalyticsExpense increments totalSpent, category spend and the transaction count.
	AnalyticsExpense AnalyticsKind = "expense"
	// AnalyticsIncome increments totalPaid.
	AnalyticsIncome AnalyticsKind = "income"
	// AnalyticsDebt adjusts totalDebt. Negative amounts reduce it.
	AnalyticsDebt AnalyticsKind = "debt"
)

// UserAnalytics is a rollup keyed by (UserID, GroupID, Year, Month).
type UserAnalytics struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`

	TotalSpent float64 `json:"totalSpent"`
	TotalPaid  float64 `json:"totalPaid"`
	TotalDebt  float64 `json:"totalDebt"`

	CategorySpend    map[string]float64 `json:"categorySpend"`
	TransactionCount int                `json:"transactionCount"`

	// FrequentCategories is a set: presence only, no ranking.
	FrequentCategories []string `json:"frequentCategories"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// AnalyticsDelta is one atomic increment applied to a rollup row.
type AnalyticsDelta struct {
	UserID  string
	GroupID string
	Year    int
	Month   int

	Spent        float64
	Paid         float64
	Debt         float64
	Transactions int

	// Category is added to the frequent set and receives Spent, when non-empty.
	Category string
}

// AnalyticsOverview sums rollups over every month.
type AnalyticsOverview struct {
	TotalSpent       float64            `json:"totalSpent"`
	TotalPaid        float64            `json:"totalPaid"`
	TotalDebt        float64            `json:"totalDebt"`
	NetBalance       float64            `json:"netBalance"`
	TransactionCount int                `json:"transactionCount"`
	CategorySpend    map[string]float64 `json:"categorySpend"`
	TopCategories    []string           `json:"topCategories"`
	MonthsTracked    int                `json:"monthsTracked"`
}

// MonthlyAnalytics is one month of rollups, summed across groups when no group is selected.
type MonthlyAnalytics struct {
	Year             int                `json:"year"`
	Month            int                `json:"month"`
	TotalSpent       float64            `json:"totalSpent"`
	TotalPaid        float64            `json:"totalPaid"`
	TotalDebt        float64            `json:"totalDebt"`
	TransactionCount int                `json:"transactionCount"`
	CategorySpend    map[string]float64 `json:"categorySpend"`
}

// YearlyAnalytics is one year of rollups.
type YearlyAnalytics struct {
	Year             int                `json:"year"`
	TotalSpent       float64            `json:"totalSpent"`
	TotalPaid        float64            `json:"totalPaid"`
	TotalDebt        float64            `json:"totalDebt"`
	TransactionCount int                `json:"transactionCount"`
	CategorySpend    map[string]float64 `json:"categorySpend"`
}

// AnalyticsComparison compares the current month against the previous one.
// Change fields are percentages and nil when the previous month has no data.
type AnalyticsComparison struct {
	Current  MonthlyAnalytics `json:"current"`
	Previous MonthlyAnalytics `json:"previous"`

	SpentChange        *float64 `json:"spentChange"`
	PaidChange         *float64 `json:"paidChange"`
	TransactionsChange *float64 `json:"transactionsChange"`
}
