package metrics

const (
	EngineLabel    = "engine"
	LabelOperation = "operation"
	LabelResource  = "resource"
)

const (
	namespaceFund = "fund"

	subsystemEngine  = "engine"
	subsystemStorage = "storage"
)

const (
	EngineSettlement = "settlement"
	EngineTreasury   = "treasury"
	EngineEscrow     = "escrow"
)

const (
	ResourceUndefined = "undefined"
	ResourceGroup     = "group"
	ResourceProposal  = "proposal"
	ResourceCampaign  = "campaign"
	ResourceMilestone = "milestone"
	ResourceDonation  = "donation"
)
