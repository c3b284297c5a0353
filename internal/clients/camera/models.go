package camera

// Camera is a single camera as reported by the hub.
type Camera struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
}
