package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListToString(t *testing.T) {
	assert.Equal(t, "[]", ListToString(nil))
	assert.Equal(t, `["Projetor","Som"]`, ListToString([]string{"Projetor", "Som"}))
}

func TestStringToList(t *testing.T) {
	assert.Equal(t, []string{}, StringToList(""))
	assert.Equal(t, []string{}, StringToList("[]"))
	assert.Equal(t, []string{"Laboratório", "Estudo"}, StringToList(`["Laboratório","Estudo"]`))
	assert.Equal(t, []string{"a", "b"}, StringToList("a, ,b"), "legacy comma list")
}
