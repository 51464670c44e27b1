package domain

import (
	"crypto/rand"
	"math/big"
)

// Link maps a share code to a stored file and the user who shared it.
type Link struct {
	Username Username `json:"username"`
	FileName string   `json:"file_name"`
}

const (
	linkCodeSize     = 16
	linkCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// LinkCode is the random alphanumeric code a share link is addressed by.
type LinkCode string

// NewLinkCode draws a fresh 16-character alphanumeric code from the
// cryptographic random source.
func NewLinkCode() (LinkCode, error) {
	buf := make([]byte, linkCodeSize)
	max := big.NewInt(int64(len(linkCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = linkCodeAlphabet[n.Int64()]
	}
	return LinkCode(buf), nil
}

func (c LinkCode) String() string { return string(c) }
