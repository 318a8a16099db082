package loyalty

// Kind identifies a category of engine failure.
type Kind string

const (
	KindTokenMalformed             Kind = "token_malformed"
	KindTokenExpired               Kind = "token_expired"
	KindCardNotFound               Kind = "card_not_found"
	KindCardInactive               Kind = "card_inactive"
	KindOfferNotFound              Kind = "offer_not_found"
	KindOfferInactive              Kind = "offer_inactive"
	KindOfferExpired               Kind = "offer_expired"
	KindBelowMinimumPurchase       Kind = "below_minimum_purchase"
	KindPerUserLimitReached        Kind = "per_user_limit_reached"
	KindGlobalLimitReached         Kind = "global_limit_reached"
	KindStoreNotApproved           Kind = "store_not_approved"
	KindNotRefundable              Kind = "not_refundable"
	KindTransactionNumberCollision Kind = "transaction_number_collision"
)

// Error is a structured engine error carrying one of the kinds above.
// Handlers map kinds to HTTP statuses; eligibility kinds inside a
// multi-offer scan are reported per offer instead of failing the request.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

// Is matches errors by kind so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retriable reports whether the caller may retry the operation as-is.
func (e *Error) Retriable() bool {
	return e.Kind == KindTransactionNumberCollision
}

var (
	ErrTokenMalformed             = &Error{Kind: KindTokenMalformed}
	ErrTokenExpired               = &Error{Kind: KindTokenExpired}
	ErrCardNotFound               = &Error{Kind: KindCardNotFound}
	ErrCardInactive               = &Error{Kind: KindCardInactive}
	ErrOfferNotFound              = &Error{Kind: KindOfferNotFound}
	ErrOfferInactive              = &Error{Kind: KindOfferInactive}
	ErrOfferExpired               = &Error{Kind: KindOfferExpired}
	ErrBelowMinimumPurchase       = &Error{Kind: KindBelowMinimumPurchase}
	ErrPerUserLimitReached        = &Error{Kind: KindPerUserLimitReached}
	ErrGlobalLimitReached         = &Error{Kind: KindGlobalLimitReached}
	ErrStoreNotApproved           = &Error{Kind: KindStoreNotApproved}
	ErrNotRefundable              = &Error{Kind: KindNotRefundable}
	ErrTransactionNumberCollision = &Error{Kind: KindTransactionNumberCollision}
)

func errf(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
