// =============================================================================
// Landed Cost Calculator - XML Writer Module
// =============================================================================
//
// This module writes output records as an XML document for systems that
// import landed costs in bulk. Records are grouped back into orders.
//
// XML STRUCTURE:
//
//   <landedCosts run="...">                     <!-- Root element -->
//     <order n="1" number="21345678" source="order.pdf">
//       <OrderDate>2024-03-05</OrderDate>        <!-- Order-level fields -->
//       <Currency>AUD</Currency>
//       ...
//       <GrandTotal>1.65</GrandTotal>
//       <item n="1">                            <!-- Global item numbering -->
//         <Color>Red</Color>
//         <PartNumber>3001</PartNumber>
//         ...
//       </item>
//     </order>
//   </landedCosts>
//
// Element names are the output column names without underscores. Values
// are formatted exactly as in the CSV output; an empty value is written as
// a self-closing element.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/invoice-landed-cost/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration writes <?xml version="1.0" encoding="UTF-8"?>.
	IncludeXMLDeclaration bool

	// RootAttributes are added to the root element in key order.
	// Example: {"run": "0b6c..."}
	RootAttributes map[string]string

	// ItemNumberingGlobal numbers items 1, 2, 3... across all orders.
	// If false, numbering restarts in each order.
	ItemNumberingGlobal bool
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootAttributes:        make(map[string]string),
		ItemNumberingGlobal:   true,
	}
}

// Element names.
const (
	rootElement  = "landedCosts"
	orderElement = "order"
	itemElement  = "item"
)

// orderColumns are written once per order; the rest once per item.
// Source_File and Order_Number become attributes of <order>.
var orderColumns = map[string]bool{
	"Order_Date": true, "Currency": true, "Original_Currency": true, "Exchange_Rate": true,
	"Order_Subtotal": true, "Shipping": true, "Insurance": true,
	"Additional_Charges": true, "Credit": true, "Grand_Total": true,
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Write generates the document and saves it to path.
func Write(path string, records []types.OutputRecord, options GenerateOptions) error {
	data, err := Generate(records, options)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write XML file: %w", err)
	}
	return nil
}

// Generate creates the XML document for a set of records.
//
// PARAMETERS:
//   - records: Output rows. Consecutive rows with the same source file and
//     order number form one <order>.
//   - options: The generation options.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if generation fails.
func Generate(records []types.OutputRecord, options GenerateOptions) ([]byte, error) {
	if options.Indent == "" {
		options.Indent = "  "
	}

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	}

	doc := buildDocument(records, options)
	writeElement(&buffer, doc, options.Indent, 0)

	return buffer.Bytes(), nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// attr is one attribute of an element.
type attr struct {
	Name  string
	Value string
}

// element is a generic XML element: either a text value or children.
type element struct {
	Name       string
	Attributes []attr
	Value      string
	Children   []element
}

func buildDocument(records []types.OutputRecord, options GenerateOptions) element {
	root := element{Name: rootElement}

	keys := make([]string, 0, len(options.RootAttributes))
	for key := range options.RootAttributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		root.Attributes = append(root.Attributes, attr{Name: key, Value: options.RootAttributes[key]})
	}

	itemIndex := 0
	for start := 0; start < len(records); {
		end := start + 1
		for end < len(records) && sameOrder(records[start], records[end]) {
			end++
		}
		if !options.ItemNumberingGlobal {
			itemIndex = 0
		}
		root.Children = append(root.Children, buildOrderElement(records[start:end], len(root.Children)+1, &itemIndex))
		start = end
	}

	return root
}

func sameOrder(a, b types.OutputRecord) bool {
	return a.SourceFile == b.SourceFile && a.OrderNumber == b.OrderNumber
}

// buildOrderElement builds one <order> from the rows of a single order.
// itemIndex is advanced for each item written.
func buildOrderElement(rows []types.OutputRecord, n int, itemIndex *int) element {
	first := rows[0]
	order := element{
		Name: orderElement,
		Attributes: []attr{
			{Name: "n", Value: strconv.Itoa(n)},
			{Name: "number", Value: first.OrderNumber},
			{Name: "source", Value: first.SourceFile},
		},
	}

	values := first.Strings()
	for i, col := range types.OutputColumns {
		if orderColumns[col] {
			order.Children = append(order.Children, simpleElement(col, values[i]))
		}
	}

	for _, rec := range rows {
		*itemIndex++
		item := element{
			Name:       itemElement,
			Attributes: []attr{{Name: "n", Value: strconv.Itoa(*itemIndex)}},
		}
		values := rec.Strings()
		for i, col := range types.OutputColumns {
			if col == "Source_File" || col == "Order_Number" || orderColumns[col] {
				continue
			}
			item.Children = append(item.Children, simpleElement(col, values[i]))
		}
		order.Children = append(order.Children, item)
	}

	return order
}

// simpleElement creates a text element named after an output column.
func simpleElement(column, value string) element {
	return element{Name: strings.ReplaceAll(column, "_", ""), Value: value}
}

// writeElement writes an element and its children with indentation.
func writeElement(buffer *bytes.Buffer, el element, indent string, level int) {
	buffer.WriteString(strings.Repeat(indent, level))
	buffer.WriteString("<")
	buffer.WriteString(el.Name)
	for _, a := range el.Attributes {
		fmt.Fprintf(buffer, " %s=\"%s\"", a.Name, escapeXML(a.Value))
	}

	if len(el.Children) == 0 && el.Value == "" {
		buffer.WriteString("/>\n")
		return
	}
	buffer.WriteString(">")

	if len(el.Children) == 0 {
		buffer.WriteString(escapeXML(el.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range el.Children {
			writeElement(buffer, child, indent, level+1)
		}
		buffer.WriteString(strings.Repeat(indent, level))
	}

	buffer.WriteString("</")
	buffer.WriteString(el.Name)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for text and attribute values.
func escapeXML(s string) string {
	var buffer strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}
	return buffer.String()
}
