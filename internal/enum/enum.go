package enum

// ── Draft lifecycle ──

const (
	DraftStatusEditing   = "EDITING"
	DraftStatusSubmitted = "SUBMITTED"
	DraftStatusDiscarded = "DISCARDED"
)

const (
	DraftModeAdd  = "ADD"
	DraftModeEdit = "EDIT"
)

// ── Pricing ──

const (
	PricingModeAuto   = "AUTO"
	PricingModeManual = "MANUAL"
)

const (
	PaymentMethodCash   = "CASH"
	PaymentMethodCard   = "CARD"
	PaymentMethodOnline = "ONLINE"
)

// ── Operator roles (validated at the auth boundary) ──

const (
	UserRoleOwner    = "OWNER"
	UserRoleManager  = "MANAGER"
	UserRoleOperator = "OPERATOR"
)

// ── WebSocket event types ──

const (
	EventZoneResolved   = "zone.resolved"
	EventPricingUpdated = "pricing.updated"
	EventDraftDirty     = "draft.dirty"
	EventDraftSubmitted = "draft.submitted"
	EventGeocodeFailed  = "geocode.failed"
)
