package diagnostic

// Routing targets with special meaning. Any other target is a solution
// bucket key handed back to the caller for article lookup.
const (
	targetNextQuestion = "next_question"
	targetComplete     = "complete"
)

// RoutingTable maps category -> question key -> normalized answer -> target.
// Question keys come from models.DiagnosticQuestion.Key().
type RoutingTable map[string]map[string]map[string]string

// DefaultRoutingTable returns the built-in routing rules for the categories
// DeskPipe ships diagnostics for.
func DefaultRoutingTable() RoutingTable {
	return RoutingTable{
		"network_connectivity": {
			"can_access_internet": {
				"yes": "check_specific_service",
				"no":  "check_network_hardware",
			},
			"lights_on_router": {
				"yes": "check_wifi_settings",
				"no":  "power_cycle_router",
			},
		},
		"printer_issues": {
			"printer_powered_on": {
				"yes": "check_connection_type",
				"no":  "check_power_cable",
			},
			"error_message_displa": {
				"yes": "identify_error_code",
				"no":  "run_printer_diagnostics",
			},
		},
	}
}

// bucketIntros is the lead-in text per solution bucket key.
var bucketIntros = map[string]string{
	"check_network_hardware":  "Let's check your network hardware connections.",
	"check_wifi_settings":     "Let's review your WiFi settings.",
	"power_cycle_router":      "Let's try restarting your router.",
	"check_power_cable":       "Let's ensure the printer is properly connected to power.",
	"identify_error_code":     "Let's look up that error code.",
	"run_printer_diagnostics": "Let's run the printer's built-in diagnostics.",
}

// bucketIntro returns the lead-in for a solution bucket, with a generic
// fallback for keys outside the table.
func bucketIntro(key string) string {
	if intro, ok := bucketIntros[key]; ok {
		return intro
	}
	return "Let me find the best solution for you."
}
