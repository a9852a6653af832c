package domain

// Zero overwrites key material in place.
func Zero(b []byte) {
	clear(b)
}
