package models

// Booking statuses as the marketplace API reports them. The server owns the
// status; the client only requests transitions and re-fetches.
const (
	BookingPending   = "Pending"
	BookingConfirmed = "Confirmed"
	BookingCanceled  = "Canceled"
)

// ParseModeMarkdown is the Telegram parse mode used for formatted messages.
const ParseModeMarkdown = "Markdown"

// Payment targets accepted by POST /payments.
const (
	TargetBoatyard = "Boatyard"
	TargetSupplier = "Supplier"
)

// Booking types for POST /bookings.
const (
	BookingTypeDockService  = 0
	BookingTypeProductOrder = 1
)

const (
	StepMainMenu       = "main_menu"
	StepLoginEmail     = "login_email"
	StepLoginPassword  = "login_password"
	StepSelectBoatyard = "select_boatyard"
	StepSelectService  = "select_service"
	StepSelectSlot     = "select_slot"
	StepSelectShip     = "select_ship"
	StepRegisterShip   = "register_ship"
	StepTimeWindow     = "time_window"
	StepConfirm        = "confirm"
	StepPayment        = "payment"
	StepManualTransfer = "manual_transfer"
)

const (
	// DefaultRedisTTL lifetime of a flow state in Redis, seconds.
	DefaultRedisTTL = 24 * 60 * 60

	// CatalogCacheTTL lifetime of cached catalog GETs, seconds.
	CatalogCacheTTL = 5 * 60

	// DefaultPaginationSize default page size for selection lists.
	DefaultPaginationSize = 8

	// RateLimitMessages messages allowed per window.
	RateLimitMessages = 20

	// RateLimitWindow rate limit window, seconds.
	RateLimitWindow = 60

	// WorkerQueueSize in-memory queue size of the sheets worker.
	WorkerQueueSize = 1000
)
