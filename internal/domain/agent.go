package domain

const (
	AgentOrder   = "ORDER"
	AgentBilling = "BILLING"
	AgentSupport = "SUPPORT"
)

type QuickAction struct {
	Label string
	Query string
}

// QuickActions son las consultas sugeridas cuando el transcript esta vacio.
var QuickActions = []QuickAction{
	{Label: "Check Order Status", Query: "What is the status of order ORD-001?"},
	{Label: "View Invoice", Query: "Check invoice INV-001"},
	{Label: "Refund Status", Query: "What's the status of refund REF-001?"},
	{Label: "Get Help", Query: "How do I reset my password?"},
}
