package tui

// Color constants for the recorder theme
const (
	ColorBorder        = "#3A3F55" // Grey-blue
	ColorPrimaryText   = "#E6EAF2"
	ColorSecondaryText = "#B1B8C7"
	ColorHelpText      = "240" // Dark grey for help text

	ColorAccentMain   = "#7C3AED" // Title, focused input
	ColorAccentBright = "#A78BFA" // Buffered events

	ColorError   = "#EF4444"
	ColorSuccess = "#22C55E" // Toasts
	ColorWarning = "#F59E0B" // Clear confirmation, admin badge
)
