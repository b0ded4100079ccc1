package config

import "testing"

// FuzzParse feeds malformed profiles through the full load path. Accepted
// profiles must dump and parse back.
func FuzzParse(f *testing.F) {
	f.Add([]byte(fullProfile))
	f.Add([]byte(""))
	f.Add([]byte("{}"))
	f.Add([]byte("[]"))
	f.Add([]byte("null"))
	f.Add([]byte("---"))
	f.Add([]byte("h1: 5-1"))
	f.Add([]byte("h1: [1, 2]"))
	f.Add([]byte("i1: \"<r 70000>\""))
	f.Add([]byte("jc: 1\njmax: 10\n---\njc: 2"))

	f.Fuzz(func(t *testing.T, data []byte) {
		cfg, err := Parse(data)
		if err != nil {
			return
		}
		out, err := Dump(cfg)
		if err != nil {
			t.Fatalf("dump accepted profile: %v", err)
		}
		if _, err := Parse(out); err != nil {
			t.Fatalf("dumped profile rejected: %v\n%s", err, out)
		}
	})
}
