package docx

import (
	"archive/zip"
	"time"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const emptyDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="` + NamespaceW + `"><w:body><w:sectPr/></w:body></w:document>`

// New returns an empty document with the minimum set of package parts Word
// needs to open it: content types, package relationships, and a body that
// holds only section properties.
func New() *Document {
	now := time.Now()
	mk := func(name, data string) part {
		return part{
			header: zip.FileHeader{Name: name, Method: zip.Deflate, Modified: now},
			data:   []byte(data),
		}
	}
	parts := []part{
		mk("[Content_Types].xml", contentTypesXML),
		mk("_rels/.rels", packageRelsXML),
		mk(documentPart, emptyDocumentXML),
	}

	// The literals above are known-good; Read cannot fail on them.
	d, err := readParts(parts)
	if err != nil {
		panic("docx: invalid built-in template: " + err.Error())
	}
	return d
}
