package dns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerificationName(t *testing.T) {
	assert.Equal(t, "_loomsite.app.example.com", VerificationName("_loomsite", "app.example.com"))
	assert.Equal(t, "_loomsite.example.com", VerificationName(" _loomsite. ", "example.com"))
	assert.Equal(t, "_loomsite.example.com", VerificationName("_loomsite", " example.com "))
}
