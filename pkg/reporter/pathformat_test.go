package reporter

import "testing"

// These cases are a direct port of the reference implementation's
// combined_test, which exercises every prefix/suffix overlap shape the
// formatter needs to handle.
func TestCombinedPaths(t *testing.T) {
	cases := []struct {
		base, relativize, want string
	}{
		{"foo/bar/baz/a.txt", "foo/baz/quz/zzz/a.txt", "foo/{bar/baz => baz/quz/zzz}/a.txt"},
		{"foo/baz/quz/zzz/b.txt", "foo/baz/quz/zzz/a.txt", "foo/baz/quz/zzz/{b.txt => a.txt}"},
		{"foo/baz/quz/zzz/b.txt", "b.txt", "{foo/baz/quz/zzz => .}/b.txt"},
		{"b.txt", "foo/baz/quz/zzz/b.txt", "{. => foo/baz/quz/zzz}/b.txt"},
		{"b.txt", "e.txt", "{b.txt => e.txt}"},
		{"/foo/bar/baz/a.txt", "/foo/baz/quz/zzz/a.txt", "/foo/{bar/baz => baz/quz/zzz}/a.txt"},
		{"/foo/b/quz/zzz/a.txt", "/foo/baz/quz/zzz/a.txt", "/foo/{b => baz}/quz/zzz/a.txt"},
	}

	for _, c := range cases {
		got := CombinedPaths(c.base, c.relativize)
		if got != c.want {
			t.Errorf("CombinedPaths(%q, %q) = %q, want %q", c.base, c.relativize, got, c.want)
		}
	}
}
