package content

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html/charset"
	"golang.org/x/xerrors"
)

// Node is a generic XML element
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []Node     `xml:",any"`
}

// Attr returns the value of the first attribute with the given local name
func (n *Node) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Find returns the direct children with the given local name
func (n *Node) Find(name string) []Node {
	var nodes []Node
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			nodes = append(nodes, c)
		}
	}
	return nodes
}

func parseCSS(b []byte) (interface{}, error) {
	return cascadia.ParseGroup(strings.TrimSpace(string(b)))
}

func parseCSV(b []byte) (interface{}, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func parseHTML(b []byte) (interface{}, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(b))
}

func parseJSON(b []byte) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func parseXML(b []byte) (interface{}, error) {
	d := xml.NewDecoder(bytes.NewReader(b))
	d.CharsetReader = charset.NewReaderLabel

	var root Node
	if err := d.Decode(&root); err != nil {
		return nil, err
	}

	// only comments, processing instructions and whitespace may follow the root element
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return &root, nil
		} else if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, xerrors.Errorf("unexpected text %q after root element", string(t))
			}
		case xml.StartElement:
			return nil, xerrors.Errorf("unexpected element <%s> after root element <%s>", t.Name.Local, root.XMLName.Local)
		default:
			return nil, xerrors.Errorf("unexpected %T after root element", t)
		}
	}
}
