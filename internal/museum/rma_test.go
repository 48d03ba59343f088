package museum

import (
	"testing"
)

const rmaRecordXML = `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <GetRecord>
    <record>
      <metadata>
        <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
                 xmlns:edm="http://www.europeana.eu/schemas/edm/"
                 xmlns:dc="http://purl.org/dc/elements/1.1/"
                 xmlns:dcterms="http://purl.org/dc/terms/"
                 xmlns:ore="http://www.openarchives.org/ore/terms/"
                 xmlns:skos="http://www.w3.org/2004/02/skos/core#">
          <edm:ProvidedCHO rdf:about="https://id.rijksmuseum.nl/200107924">
            <dc:identifier>SK-C-5</dc:identifier>
            <dc:title xml:lang="nl">De Nachtwacht</dc:title>
            <dc:title xml:lang="en">The Night Watch</dc:title>
            <dc:creator rdf:resource="https://id.rijksmuseum.nl/agent/1"/>
            <dcterms:created>1642</dcterms:created>
            <dc:rights rdf:resource="http://creativecommons.org/publicdomain/mark/1.0/"/>
            <dc:type rdf:resource="https://id.rijksmuseum.nl/concept/painting"/>
          </edm:ProvidedCHO>
          <ore:Aggregation rdf:about="https://id.rijksmuseum.nl/aggregation/200107924">
            <edm:isShownBy rdf:resource="https://iiif.micr.io/abc123/full/max/0/default.jpg"/>
          </ore:Aggregation>
          <edm:Agent rdf:about="https://id.rijksmuseum.nl/agent/1">
            <skos:prefLabel xml:lang="nl">Rembrandt van Rijn</skos:prefLabel>
          </edm:Agent>
          <skos:Concept rdf:about="https://id.rijksmuseum.nl/concept/painting">
            <skos:prefLabel xml:lang="nl">schilderij</skos:prefLabel>
            <skos:prefLabel xml:lang="en">painting</skos:prefLabel>
          </skos:Concept>
        </rdf:RDF>
      </metadata>
    </record>
  </GetRecord>
</OAI-PMH>`

func TestParseRMARecord(t *testing.T) {
	record, err := ParseRMARecord([]byte(rmaRecordXML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil {
		t.Fatal("expected record to be non-nil")
	}

	if record.Identifier != "SK-C-5" {
		t.Errorf("expected identifier SK-C-5, got %q", record.Identifier)
	}
	if record.Title != "The Night Watch" {
		t.Errorf("expected English title to be preferred, got %q", record.Title)
	}
	if record.Created != "1642" {
		t.Errorf("expected created 1642, got %q", record.Created)
	}
	if record.Rights != "http://creativecommons.org/publicdomain/mark/1.0/" {
		t.Errorf("unexpected rights %q", record.Rights)
	}
	if record.ImageURL != "https://iiif.micr.io/abc123/full/max/0/default.jpg" {
		t.Errorf("unexpected image URL %q", record.ImageURL)
	}
	if len(record.Artists) != 1 || record.Artists[0] != "Rembrandt van Rijn" {
		t.Errorf("expected creator resolved via agent reference, got %v", record.Artists)
	}
	if len(record.WorkTypes) != 1 || record.WorkTypes[0] != "painting" {
		t.Errorf("expected work type resolved via concept reference, got %v", record.WorkTypes)
	}
}

func TestParseRMARecord_EmptyEnvelope(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <GetRecord><record><metadata>
    <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"/>
  </metadata></record></GetRecord>
</OAI-PMH>`)

	record, err := ParseRMARecord(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil record for envelope without ProvidedCHO, got %+v", record)
	}
}

func TestRMARecordPayloadRoundTrip(t *testing.T) {
	original := &RMARecord{
		Identifier: "SK-A-1",
		Title:      "A Title",
		Artists:    []string{"Some Painter"},
		WorkTypes:  []string{"drawing"},
		Rights:     "https://creativecommons.org/publicdomain/zero/1.0/",
		ImageURL:   "https://example.org/image.jpg",
		Created:    "c. 1650 - 1660",
	}

	restored, err := RMARecordFromPayload(original.Payload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.Identifier != original.Identifier ||
		restored.Title != original.Title ||
		restored.Rights != original.Rights ||
		restored.ImageURL != original.ImageURL ||
		restored.Created != original.Created {
		t.Errorf("round trip mismatch: got %+v", restored)
	}
	if len(restored.Artists) != 1 || restored.Artists[0] != "Some Painter" {
		t.Errorf("artists did not survive round trip: %v", restored.Artists)
	}
}

func TestCursorEncodings(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
		wtIdx  int
		offset int
		ok     bool
	}{
		{name: "empty cursor", cursor: "", wtIdx: 0, offset: 0, ok: true},
		{name: "round trip", cursor: formatOffsetCursor(2, 300), wtIdx: 2, offset: 300, ok: true},
		{name: "missing separator", cursor: "42", ok: false},
		{name: "non-numeric offset", cursor: "1:abc", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wtIdx, offset, err := parseOffsetCursor(tt.cursor)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if wtIdx != tt.wtIdx || offset != tt.offset {
				t.Errorf("expected (%d, %d), got (%d, %d)", tt.wtIdx, tt.offset, wtIdx, offset)
			}
		})
	}

	wtIdx, token, err := parseTokenCursor("1:abc:def")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wtIdx != 1 || token != "abc:def" {
		t.Errorf("expected token cursor to split on first separator only, got (%d, %q)", wtIdx, token)
	}
}
