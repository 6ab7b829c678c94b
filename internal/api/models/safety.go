package models

// State is a state or union territory.
type State struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// CreateStateRequest is the body of POST /api/states.
type CreateStateRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Metrics is the nested sub-score view of a metric record. Null means no value recorded.
type Metrics struct {
	Crime     *float64 `json:"crime"`
	Police    *float64 `json:"police"`
	Road      *float64 `json:"road"`
	Health    *float64 `json:"health"`
	Emergency *float64 `json:"emergency"`
	Disaster  *float64 `json:"disaster"`
	Women     *float64 `json:"women"`
}

// CompareMetrics is Metrics with nulls coerced to zero for charting.
type CompareMetrics struct {
	Crime     float64 `json:"crime"`
	Police    float64 `json:"police"`
	Road      float64 `json:"road"`
	Health    float64 `json:"health"`
	Emergency float64 `json:"emergency"`
	Disaster  float64 `json:"disaster"`
	Women     float64 `json:"women"`
}

// SafetyData is one state's row in the snapshot listing.
type SafetyData struct {
	ID               string  `json:"id"`
	StateCode        string  `json:"state_code"`
	StateName        string  `json:"state_name"`
	SafetyPercentage float64 `json:"safety_percentage"`
	Metrics          Metrics `json:"metrics"`
	DataSourceURL    *string `json:"data_source_url"`
	RecordedAt       *string `json:"recorded_at"`
}

// Rankings holds the top and bottom of the snapshot by safety percentage.
type Rankings struct {
	Safest     []SafetyData `json:"safest"`
	Concerning []SafetyData `json:"concerning"`
}

// TrendPoint is one year of a state's history.
type TrendPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// StateDetail is the per-state detail view.
type StateDetail struct {
	State            State        `json:"state"`
	SafetyPercentage float64      `json:"safety_percentage"`
	Metrics          Metrics      `json:"metrics"`
	DataSourceURL    *string      `json:"data_source_url"`
	RecordedAt       *string      `json:"recorded_at"`
	Trend            []TrendPoint `json:"trend"`
}

// CompareEntry is one state in a comparison payload.
type CompareEntry struct {
	Name             string         `json:"name"`
	Metrics          CompareMetrics `json:"metrics"`
	SafetyPercentage float64        `json:"safety_percentage"`
	StateCode        string         `json:"state_code"`
}

// SafetyRecord is the flat stored form of a metric record.
type SafetyRecord struct {
	ID                string     `json:"id"`
	StateID           string     `json:"state_id"`
	RecordedAt        string     `json:"recorded_at"`
	SafetyPercentage  float64    `json:"safety_percentage"`
	CrimeRate         *float64   `json:"crime_rate"`
	PolicePerCapita   *float64   `json:"police_per_capita"`
	RoadSafety        *float64   `json:"road_safety"`
	HealthcareAccess  *float64   `json:"healthcare_access"`
	EmergencyResponse *float64   `json:"emergency_response"`
	DisasterRisk      *float64   `json:"disaster_risk"`
	WomensSafety      *float64   `json:"womens_safety"`
	DataSourceURL     *string    `json:"data_source_url"`
	CreatedAt         *Timestamp `json:"created_at,omitempty"`
	UpdatedAt         *Timestamp `json:"updated_at,omitempty"`
}

// SafetyRecordRequest is the body of POST /api/safety and PUT /api/safety/{code}.
// POST identifies the state by state_id or state_code; PUT takes it from the path.
type SafetyRecordRequest struct {
	StateID           string   `json:"state_id,omitempty"`
	StateCode         string   `json:"state_code,omitempty"`
	RecordedAt        string   `json:"recorded_at,omitempty"`
	SafetyPercentage  *float64 `json:"safety_percentage"`
	CrimeRate         *float64 `json:"crime_rate,omitempty"`
	PolicePerCapita   *float64 `json:"police_per_capita,omitempty"`
	RoadSafety        *float64 `json:"road_safety,omitempty"`
	HealthcareAccess  *float64 `json:"healthcare_access,omitempty"`
	EmergencyResponse *float64 `json:"emergency_response,omitempty"`
	DisasterRisk      *float64 `json:"disaster_risk,omitempty"`
	WomensSafety      *float64 `json:"womens_safety,omitempty"`
	DataSourceURL     *string  `json:"data_source_url,omitempty"`
}

// StoreStatus reports which data backend is serving requests.
type StoreStatus struct {
	UsingSupabase bool   `json:"usingSupabase"`
	Backend       string `json:"backend"`
}
