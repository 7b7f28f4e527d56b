package ocr

// AnalyzeResult is the layout analysis returned by Azure Document
// Intelligence (prebuilt-layout). Only the collections the tree builder and
// page-dimension extraction need are modelled; everything else in the raw
// payload is kept in Result.Raw.
type AnalyzeResult struct {
	APIVersion string      `json:"apiVersion,omitempty"`
	ModelID    string      `json:"modelId,omitempty"`
	Content    string      `json:"content,omitempty"`
	Pages      []Page      `json:"pages,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs,omitempty"`
	Tables     []Table     `json:"tables,omitempty"`
	Sections   []Section   `json:"sections,omitempty"`
}

// Page describes one analyzed page. Width and height are in Unit
// ("inch" for PDFs, "pixel" for images).
type Page struct {
	PageNumber int     `json:"pageNumber"`
	Angle      float64 `json:"angle,omitempty"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Unit       string  `json:"unit,omitempty"`
}

// Span addresses a slice of AnalyzeResult.Content.
type Span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// BoundingRegion locates an element on a page. Polygon is a flat
// x1,y1,x2,y2,... list, normally four vertices.
type BoundingRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

// Paragraph roles emitted by the layout model. RoleParagraph stands in for
// body text, which the model leaves unlabeled.
const (
	RoleParagraph      = "paragraph"
	RoleTitle          = "title"
	RoleSectionHeading = "sectionHeading"
	RolePageHeader     = "pageHeader"
	RolePageFooter     = "pageFooter"
	RolePageNumber     = "pageNumber"
	RoleFootnote       = "footnote"
	RoleFormula        = "formulaBlock"
)

type Paragraph struct {
	Role            string           `json:"role,omitempty"`
	Content         string           `json:"content"`
	Spans           []Span           `json:"spans,omitempty"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
}

type Table struct {
	RowCount        int              `json:"rowCount"`
	ColumnCount     int              `json:"columnCount"`
	Cells           []TableCell      `json:"cells"`
	Spans           []Span           `json:"spans,omitempty"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
}

type TableCell struct {
	Kind        string `json:"kind,omitempty"`
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	RowSpan     int    `json:"rowSpan,omitempty"`
	ColumnSpan  int    `json:"columnSpan,omitempty"`
	Content     string `json:"content"`
}

// Section groups paragraphs, tables and nested sections. Elements holds
// JSON-pointer style references such as "/paragraphs/3", "/tables/0" or
// "/sections/2", in reading order.
type Section struct {
	Spans    []Span   `json:"spans,omitempty"`
	Elements []string `json:"elements,omitempty"`
}
