package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeCSS(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "allowed property kept, others dropped",
			in:   ".bio { color: red; position: fixed }",
			want: ".profile-custom .bio { color: red; }\n",
		},
		{
			name: "import statement removed",
			in:   "@import url(evil.css);\nh1 { color: blue }",
			want: ".profile-custom h1 { color: blue; }\n",
		},
		{
			name: "url values dropped",
			in:   "a { background: url(x.png); color: red }",
			want: ".profile-custom a { color: red; }\n",
		},
		{
			name: "comments removed",
			in:   "/* hi */ p { font-size: 2rem }",
			want: ".profile-custom p { font-size: 2rem; }\n",
		},
		{
			name: "body maps to the scope itself",
			in:   "body { color: #333 }",
			want: ".profile-custom { color: #333; }\n",
		},
		{
			name: "selector groups",
			in:   "h1, h2 { color: red }",
			want: ".profile-custom h1, .profile-custom h2 { color: red; }\n",
		},
		{
			name: "nested at-rule skipped",
			in:   "@media (max-width: 600px) { p { color: red } }\n.x { color: blue }",
			want: ".profile-custom .x { color: blue; }\n",
		},
		{
			name: "style breakout",
			in:   "</style><script>alert(1)</script>",
			want: "",
		},
		{
			name: "braces inside strings do not end the rule",
			in:   `a { font-family: "Brace } Sans", serif; color: red }`,
			want: `.profile-custom a { font-family: "Brace } Sans", serif; color: red; }` + "\n",
		},
		{
			name: "important kept",
			in:   "p { color: red !important }",
			want: ".profile-custom p { color: red !important; }\n",
		},
		{
			name: "font-face dropped",
			in:   "@font-face { font-family: x; src: url(x.woff) }\np { color: red }",
			want: ".profile-custom p { color: red; }\n",
		},
		{
			name: "unparseable stylesheet yields nothing",
			in:   "p { color: red } }",
			want: "",
		},
		{
			name: "blank",
			in:   "  \n",
			want: "",
		},
		{
			name: "rule with nothing allowed",
			in:   "div { position: absolute }",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(SanitizeCSS(tt.in)))
		})
	}
}
