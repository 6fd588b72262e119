package auth

import "context"

// Session binds a broker to one caller token. Each AccessToken call goes
// back to the broker, so a Session can be shared by sequential requests of
// one logical operation without holding token state itself.
type Session struct {
	broker      *Broker
	callerToken string
}

// Session returns a token source for callerToken ("" for none).
func (b *Broker) Session(callerToken string) *Session {
	return &Session{broker: b, callerToken: callerToken}
}

// AccessToken acquires a fresh access token.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	tok, err := s.broker.Acquire(ctx, s.callerToken)
	if err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}
