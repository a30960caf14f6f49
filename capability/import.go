package capability

import (
	"encoding/json"
	"fmt"

	"github.com/OpenPrinting/goipp"

	"github.com/rrohitkmr/vprinter/ipp"
)

// legacyAttributeDoc is the "legacy array" ipp_attributes/*.json shape:
// a list of attribute groups, each a flat list of named values.
type legacyAttributeDoc struct {
	Tag        string          `json:"tag"`
	Attributes []legacyAttrVal `json:"attributes"`
}

type legacyAttrVal struct {
	Name   string `json:"name"`
	Value  any    `json:"value"`
	Type   string `json:"type"`
	Values []any  `json:"values"`
}

// printerResponseDoc is the "printer response" ipp_attributes/*.json
// shape: a captured Get-Printer-Attributes response keyed by attribute
// name.
type printerResponseDoc struct {
	Response struct {
		OperationAttributes map[string]responseAttrVal `json:"operation-attributes"`
		PrinterAttributes   map[string]responseAttrVal `json:"printer-attributes"`
	} `json:"response"`
}

type responseAttrVal struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// ParseImportDocument decodes an ipp_attributes/*.json document in
// either of the two shapes described in §6 and returns the
// goipp.Attributes it describes, for use with SetImportedAttributes.
func ParseImportDocument(data []byte) (goipp.Attributes, error) {
	var legacy []legacyAttributeDoc
	if err := json.Unmarshal(data, &legacy); err == nil && len(legacy) > 0 {
		return parseLegacyDoc(legacy), nil
	}

	var resp printerResponseDoc
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unrecognized attribute document shape: %w", err)
	}
	return parseResponseDoc(resp), nil
}

func parseLegacyDoc(groups []legacyAttributeDoc) goipp.Attributes {
	var attrs goipp.Attributes
	add := ipp.Adder(attrs)
	for _, g := range groups {
		for _, a := range g.Attributes {
			tag := tagForType(a.Type)
			if len(a.Values) > 0 {
				vals := make([]goipp.Value, 0, len(a.Values))
				for _, v := range a.Values {
					vals = append(vals, valueForType(a.Type, v))
				}
				attrs = add(a.Name, tag, vals...)
				continue
			}
			attrs = add(a.Name, tag, valueForType(a.Type, a.Value))
		}
	}
	return attrs
}

func parseResponseDoc(doc printerResponseDoc) goipp.Attributes {
	var attrs goipp.Attributes
	add := ipp.Adder(attrs)
	for name, v := range doc.Response.PrinterAttributes {
		attrs = add(name, tagForType(v.Type), valueForType(v.Type, v.Value))
	}
	for name, v := range doc.Response.OperationAttributes {
		attrs = add(name, tagForType(v.Type), valueForType(v.Type, v.Value))
	}
	return attrs
}

func tagForType(typ string) goipp.Tag {
	switch typ {
	case "INTEGER":
		return goipp.TagInteger
	case "BOOLEAN":
		return goipp.TagBoolean
	default:
		return goipp.TagText
	}
}

func valueForType(typ string, v any) goipp.Value {
	switch typ {
	case "INTEGER":
		switch n := v.(type) {
		case float64:
			return goipp.Integer(int(n))
		case int:
			return goipp.Integer(n)
		}
		return goipp.Integer(0)
	case "BOOLEAN":
		if b, ok := v.(bool); ok {
			return goipp.Boolean(b)
		}
		return goipp.Boolean(false)
	default:
		return goipp.String(fmt.Sprint(v))
	}
}
