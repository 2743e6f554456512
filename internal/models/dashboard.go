package models

import "time"

// RequestMeta identifies where a mutating request came from, for the audit trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// StudentDashboard summarises a student's activity.
type StudentDashboard struct {
	Applications      []StatusCount    `json:"applications"`
	TotalApplications int              `json:"totalApplications"`
	Favorites         int              `json:"favorites"`
	Waitlist          []WaitlistDetail `json:"waitlist"`
}

// PreceptorDashboard summarises the programs a preceptor owns.
type PreceptorDashboard struct {
	Programs            []ProgramSeatUsage `json:"programs"`
	Applications        []StatusCount      `json:"applications"`
	PendingApplications int                `json:"pendingApplications"`
}

// AdminStats is the platform-wide overview.
type AdminStats struct {
	Programs           int              `json:"programs"`
	ActivePrograms     int              `json:"activePrograms"`
	Applications       []StatusCount    `json:"applications"`
	Users              map[UserType]int `json:"users"`
	PendingReviews     int              `json:"pendingReviews"`
	NewsletterActive   int              `json:"newsletterSubscribers"`
	OpenContactQueries int              `json:"openContactQueries"`
	System             SystemMetrics    `json:"system"`
}

// SystemMetrics is a lightweight snapshot of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	ApplicationTransitions   uint64    `json:"applicationTransitions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
