package fetcher

import (
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// NewXMLDecoder returns a non-strict decoder that transcodes any charset
// named in the XML declaration (windows-1252, iso-8859-1, ...) to UTF-8.
// Feeds in the wild routinely carry HTML entities, so the decoder runs with
// Strict off and the HTML entity table loaded.
func NewXMLDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return decoder
}
