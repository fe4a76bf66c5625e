package domain

// WidgetConfig holds presentation settings shared by every renderer
type WidgetConfig struct {
	Title              string `json:"title" mapstructure:"title"`
	WelcomeMessage     string `json:"welcome_message" mapstructure:"welcome_message"`
	Placeholder        string `json:"placeholder" mapstructure:"placeholder"`
	WaitingPlaceholder string `json:"waiting_placeholder" mapstructure:"waiting_placeholder"`
	ShowSources        bool   `json:"show_sources" mapstructure:"show_sources"`
	MaxInputRunes      int    `json:"max_input_runes" mapstructure:"max_input_runes"`
}

// DefaultWelcomeMessage is the seed assistant turn of every session
const DefaultWelcomeMessage = "Hey, I'm here to answer your questions about Labour party's latest policy release and contextualise it with data from public attitudes surveys. What would you like to know about first?"

// DefaultWidgetConfig returns default widget configuration
func DefaultWidgetConfig() WidgetConfig {
	return WidgetConfig{
		Title:              "Labour Policy ChatBot",
		WelcomeMessage:     DefaultWelcomeMessage,
		Placeholder:        "Type a question",
		WaitingPlaceholder: "Waiting for response...",
		ShowSources:        true,
		MaxInputRunes:      512,
	}
}
