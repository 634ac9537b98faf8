package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func TestYamlConfigParser_Parse(t *testing.T) {
	p := NewYamlConfigParser()

	var s sample
	require.NoError(t, p.Parse([]byte("name: trie\ncount: 3\n"), &s))
	assert.Equal(t, sample{Name: "trie", Count: 3}, s)
}

func TestYamlConfigParser_Empty(t *testing.T) {
	s := sample{Name: "kept"}
	require.NoError(t, NewYamlConfigParser().Parse(nil, &s))
	assert.Equal(t, "kept", s.Name)
}

func TestYamlConfigParser_UnknownField(t *testing.T) {
	var s sample
	err := NewYamlConfigParser().Parse([]byte("nmae: typo\n"), &s)
	assert.Error(t, err)

	lenient := &YamlConfigParser{}
	assert.NoError(t, lenient.Parse([]byte("nmae: typo\n"), &s))
}

func TestYamlConfigParser_Malformed(t *testing.T) {
	var s sample
	err := NewYamlConfigParser().Parse([]byte("count: [1, 2"), &s)
	assert.ErrorContains(t, err, "parse yaml")
}
