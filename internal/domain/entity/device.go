package entity

// Device is the telemetry platform's representation of a weather station.
// Token is the device push credential and must never be serialized.
type Device struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Token string `json:"-"`
}
