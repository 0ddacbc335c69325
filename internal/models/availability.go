package models

// WeeklyAvailability is a recurring weekly free-time declaration for an engineer.
// DayOfWeek is kept as received from upstream; it is validated on resolution.
// EndTime <= StartTime means the slot crosses midnight.
type WeeklyAvailability struct {
	ID         string `json:"id"`
	ResourceID string `json:"engineer_id"`
	DayOfWeek  string `json:"day_of_week"` // "mon" .. "sun"
	StartTime  string `json:"start_time"`  // "HH:mm"
	EndTime    string `json:"end_time"`    // "HH:mm"
}

// ResourceSlot is a free interval owned by a resource.
type ResourceSlot struct {
	ResourceID string `json:"engineer_id"`
	Interval
}

// DayAvailability lists the free slots of one operating day.
type DayAvailability struct {
	Date        string         `json:"date"` // 2006-01-02, operating-day column
	Slots       []ResourceSlot `json:"slots"`
	Unavailable bool           `json:"unavailable"`
}
