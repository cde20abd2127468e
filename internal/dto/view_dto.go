package dto

// Tab is one entry of the bottom navigation
type Tab struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ViewResponse tells the client which screen to render
type ViewResponse struct {
	Screen         string `json:"screen"`
	ActiveTab      string `json:"active_tab"`
	Tabs           []Tab  `json:"tabs"`
	ShowDemoBanner bool   `json:"show_demo_banner"`
}
