package internal

import "time"

// LinkRecord is the addressable routing entity behind a short code. Plain
// short links carry a stored target URL; WhatsApp links carry agents and
// build their target per redirect.
type LinkRecord struct {
	Code          string     `json:"shortId"`
	ShortURL      string     `json:"shortUrl"`
	OriginalURL   string     `json:"originalUrl"`
	OwnerID       string     `json:"userId,omitempty"`
	Name          string     `json:"name,omitempty"`
	QRCode        string     `json:"qrcode,omitempty"`
	IsActive      bool       `json:"isActive"`
	Protected     bool       `json:"protected"`
	UnlockID      string     `json:"unLockId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Message       string     `json:"message,omitempty"`
	Clicks        int64      `json:"clicks"`
	LastClickedAt *time.Time `json:"lastClickedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`

	Stats        []CountryStat    `json:"stats"`
	DeviceStats  map[string]int64 `json:"deviceStats"`
	BrowserStats map[string]int64 `json:"browserStats"`
	OSStats      map[string]int64 `json:"osStats"`

	Agents            []Agent              `json:"agents,omitempty"`
	MultiAgentEnabled bool                 `json:"multiAgentEnabled"`
	LastUsedIndex     int                  `json:"lastUsedIndex"`
	AgentAssignment   map[string]AgentLoad `json:"agentAssignment,omitempty"`
}

// HasAgents reports whether the record routes through WhatsApp agents.
func (r *LinkRecord) HasAgents() bool {
	return len(r.Agents) > 0
}

// Agent is a fixed-shape member of a WhatsApp link. Exactly one agent has
// IsCreator set at creation time; no two agents share a non-empty email or
// phone.
type Agent struct {
	IsCreator bool      `json:"isCreator"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message,omitempty"`
	AgentUID  string    `json:"agentUid,omitempty"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// AgentLoad tracks how many redirects an agent has been assigned, keyed by
// the agent's email in LinkRecord.AgentAssignment.
type AgentLoad struct {
	AssignedCount int64  `json:"assignedCount"`
	AgentUID      string `json:"agentUid,omitempty"`
	Name          string `json:"name,omitempty"`
}

// CountryStat aggregates clicks per country with a bounded list of its
// busiest cities.
type CountryStat struct {
	Country   string     `json:"country"`
	Count     int64      `json:"count"`
	TopCities []CityStat `json:"topCities"`
}

type CityStat struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}

// LinkPage is a bio-link page addressed by username.
type LinkPage struct {
	Username   string        `json:"username"`
	OwnerID    string        `json:"uid"`
	Bio        string        `json:"bio,omitempty"`
	ProfilePic string        `json:"profilePic,omitempty"`
	Links      []PageLink    `json:"links"`
	PageClicks int64         `json:"pageClicks"`
	Stats      []CountryStat `json:"stats"`
	PageURL    string        `json:"linkPageUrl"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

type PageLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type,omitempty"`
	Icon  string `json:"icon"`
}
