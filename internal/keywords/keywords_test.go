package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_Match(t *testing.T) {
	s := NewSet([]string{"已签到", "Already", "  ", "rate limit"})
	assert.Equal(t, 3, s.Len())

	tests := []struct {
		text  string
		want  string
		match bool
	}{
		{"您今天已签到", "已签到", true},
		{"ALREADY checked in", "Already", true},
		{"Rate Limit exceeded", "rate limit", true},
		{"签到成功", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := s.Match(tc.text)
		assert.Equal(t, tc.match, ok, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestSet_MatchesFullWidthForms(t *testing.T) {
	s := NewSet([]string{"2fa"})
	_, ok := s.Match("需要 ２ＦＡ 验证")
	assert.True(t, ok)
}

func TestSet_FirstConfiguredWins(t *testing.T) {
	s := NewSet([]string{"获得", "成功"})
	got, ok := s.Match("签到成功，获得 5 能量")
	assert.True(t, ok)
	assert.Equal(t, "获得", got)
}

func TestEmptySet(t *testing.T) {
	var s Set
	_, ok := s.Match("anything")
	assert.False(t, ok)
}
