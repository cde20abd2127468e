package session

// Guard parses session tokens and rejects demo tokens whose session was
// signed out. Backend tokens pass through unchanged.
type Guard struct {
	tokens *TokenManager
	store  *Store
}

func NewGuard(tokens *TokenManager, store *Store) *Guard {
	return &Guard{tokens: tokens, store: store}
}

// Parse validates tokenString like TokenManager.Parse and, for demo
// identities, requires a live session in the store.
func (g *Guard) Parse(tokenString string) (*Claims, error) {
	claims, err := g.tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Identity().IsDemo() && (g.store == nil || !g.store.Active(claims.Subject)) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
