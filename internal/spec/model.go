package spec

// Internal Model (IM) definitions shared by the extractor and the emitters.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
)

// SchemaKind classifies a named type definition from the document.
type SchemaKind string

const (
	KindObject SchemaKind = "object"
	KindEnum   SchemaKind = "enum"
	KindAlias  SchemaKind = "alias"
)

// Primitive type vocabulary used by TypeRef.Name when Model is false.
const (
	PrimString  = "string"
	PrimInteger = "integer"
	PrimNumber  = "number"
	PrimBoolean = "boolean"
	PrimAny     = "any"
)

// TypeRef points at either a SchemaModel (Model=true) or a primitive.
// Array marks a homogeneous sequence of the referenced type.
type TypeRef struct {
	Name  string
	Model bool
	Array bool
}

// AnyType is the fallback for unresolvable or unspecified types.
func AnyType() TypeRef { return TypeRef{Name: PrimAny} }

type Field struct {
	Name     string
	Type     TypeRef
	Required bool
}

// SchemaModel is one named type definition, immutable after extraction.
// Referenced lists the other definition names this model's fields point to,
// in first-seen document order; it only feeds the dependency graph.
type SchemaModel struct {
	Name       string
	Kind       SchemaKind
	Fields     []Field // Object
	EnumValues []any   // Enum, document order preserved verbatim
	AliasOf    TypeRef // Alias
	Referenced []string
}

// OperationModel describes one HTTP operation of a resource.
type OperationModel struct {
	Name         string // generated method name, snake_case
	Method       HttpMethod
	Path         string   // template with {param} placeholders
	PathParams   []string // order of appearance in the template
	QueryParams  []string // document order
	BodyType     *TypeRef // nil when the operation takes no body
	ResponseType TypeRef
}

// ResourceModel groups the operations sharing a first path segment.
type ResourceModel struct {
	Name       string // first path segment, sanitized
	Operations []OperationModel
}

// ClientModel is the root of everything a generation run emits.
// Models are in extraction order until OrderModels rewrites them into
// emission order.
type ClientModel struct {
	Title       string
	Version     string
	ClassName   string
	BaseURL     string
	Models      []SchemaModel
	Resources   []ResourceModel
	Diagnostics []Diagnostic
}

// DiagCode categorizes non-fatal conditions encountered during a run.
type DiagCode string

const (
	MalformedSchema           DiagCode = "MalformedSchema"
	UnresolvedReference       DiagCode = "UnresolvedReference"
	CyclicDependency          DiagCode = "CyclicDependency"
	UnsupportedOperationShape DiagCode = "UnsupportedOperationShape"
)

// Diagnostic records a degraded-but-continued decision; the generator never
// aborts over a single bad entry.
type Diagnostic struct {
	Code    DiagCode
	Subject string // definition name or "METHOD /path"
	Message string
}

func (d Diagnostic) String() string {
	return string(d.Code) + " " + d.Subject + ": " + d.Message
}
