package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnwrapContent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"entryType":"meal"}`, `{"entryType":"meal"}`},
		{"json fence", "```json\n{\"entryType\":\"meal\"}\n```", `{"entryType":"meal"}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without newline", "```{\"a\":1}```", `{"a":1}`},
		{"prose around", "Here you go:\n{\"a\":{\"b\":2}}\nThanks!", `{"a":{"b":2}}`},
		{"whitespace", "  \n {\"a\":1} \n", `{"a":1}`},
		{"no json", "  I cannot help with that. ", "I cannot help with that."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UnwrapContent(tc.in))
		})
	}
}
