package model

// TokenTypeBearer is the token_type value returned with every issued pair.
const TokenTypeBearer = "bearer"

// TokenPair is produced together at login.  The two tokens are
// independent after issuance and share only the subject.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RefreshResult is returned by a refresh.  RefreshToken is nil when the
// presented refresh token still has enough lifetime left and the caller
// should keep using it.
type RefreshResult struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
	TokenType    string  `json:"token_type"`
}
