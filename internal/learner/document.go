package learner

import (
	"encoding/json"
	"fmt"
)

// encodeUser and decodeUser define the document stored per row by the SQL backends.
func encodeUser(u *User) ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encoding user %s: %w", u.Email, err)
	}
	return data, nil
}

func decodeUser(data []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decoding user document: %w", err)
	}
	return &u, nil
}
