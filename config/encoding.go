package config

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding matches glTF, whose names are always utf-8.
const DefaultEncoding = "UTF-8"

var currentEncoding encoding.Encoding = unicode.UTF8
var currentEncodingName = DefaultEncoding

// SetEncoding selects the text encoding of descriptor files: UTF-8, a
// charmap name from ListEncodings or any WHATWG label like "shift_jis".
func SetEncoding(name string) error {
	if strings.EqualFold(name, DefaultEncoding) || strings.EqualFold(name, "utf8") {
		currentEncoding, currentEncodingName = unicode.UTF8, DefaultEncoding
		return nil
	}
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				currentEncoding, currentEncodingName = cm, name
				return nil
			}
		}
	}
	if enc, err := htmlindex.Get(name); err == nil {
		currentEncoding, currentEncodingName = enc, name
		return nil
	}
	return errors.Errorf("Failed to find encoding %q", name)
}

func ListEncodings() []string {
	list := []string{DefaultEncoding}
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

func GetEncoding() encoding.Encoding {
	return currentEncoding
}

func EncodingName() string {
	return currentEncodingName
}
