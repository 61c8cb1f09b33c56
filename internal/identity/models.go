package identity

// Identity is the verified caller principal. Downstream services trust it;
// all verification happens at the middleware boundary.
type Identity struct {
	Subject string
	Claims  map[string]any
	IsAdmin bool
}
