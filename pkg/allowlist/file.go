package allowlist

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML format:
//
//	businesses:
//	  - id: tester
//	    name: Test tenant
type File struct {
	Businesses []Business `yaml:"businesses"`
}

// LoadFile reads a YAML allow-list file into a StaticList.
func LoadFile(path string) (*StaticList, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read allow-list file %s", path)
	}
	return ParseFile(b)
}

func ParseFile(b []byte) (*StaticList, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "parse allow-list yaml")
	}
	ids := make([]string, 0, len(f.Businesses))
	for i, biz := range f.Businesses {
		if biz.ID == "" {
			return nil, errors.Errorf("allow-list entry %d has no id", i)
		}
		ids = append(ids, biz.ID)
	}
	return NewStaticList(ids...), nil
}
