package models

// ConfigItem is a free-form key/value row of the config sheet
type ConfigItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Row returns the sheet cells in column order
func (c ConfigItem) Row() []interface{} {
	return []interface{}{c.Key, c.Value}
}

// DashboardStats summarises the offers and schedule sheets
type DashboardStats struct {
	TotalLoans     int `json:"totalLoans"`
	ActiveLoans    int `json:"activeLoans"`
	ScheduledPosts int `json:"scheduledPosts"`
	PendingPosts   int `json:"pendingPosts"`
}
