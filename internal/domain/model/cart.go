package model

// CartItem references a sellable line; quantities are positive.
type CartItem struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
}

// Identity is the inbound claim from the auth collaborator; exactly one of
// UserID or GuestEmail is populated.
type Identity struct {
	UserID     *int64
	GuestEmail *string
}

// Valid reports whether exactly one identity class is set.
func (i Identity) Valid() bool {
	return (i.UserID != nil) != (i.GuestEmail != nil && *i.GuestEmail != "")
}
