package spec

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"
)

// BuildOption configures how the ClientModel is built from a Document.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeResources map[string]struct{}
	excludeResources map[string]struct{}
	methods          map[HttpMethod]struct{}
}

// WithIncludeResources keeps only operations under the given resources
// (first path segments, compared after sanitization).
func WithIncludeResources(names []string) BuildOption {
	return func(c *buildConfig) {
		for _, n := range names {
			n = resourceName("/" + strings.TrimSpace(n))
			if n == "" {
				continue
			}
			if c.includeResources == nil {
				c.includeResources = make(map[string]struct{})
			}
			c.includeResources[n] = struct{}{}
		}
	}
}

// WithExcludeResources removes operations under the given resources.
func WithExcludeResources(names []string) BuildOption {
	return func(c *buildConfig) {
		for _, n := range names {
			n = resourceName("/" + strings.TrimSpace(n))
			if n == "" {
				continue
			}
			if c.excludeResources == nil {
				c.excludeResources = make(map[string]struct{})
			}
			c.excludeResources[n] = struct{}{}
		}
	}
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		if len(methods) == 0 {
			return
		}
		if c.methods == nil {
			c.methods = make(map[HttpMethod]struct{}, len(methods))
		}
		for _, m := range methods {
			c.methods[m] = struct{}{}
		}
	}
}

// BuildClientModel extracts schema models and resource operations from the
// parsed document. Bad entries degrade into diagnostics; the build itself
// only fails on a nil document.
func BuildClientModel(ctx context.Context, doc *Document, opts ...BuildOption) (*ClientModel, error) {
	_ = ctx
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	b := &builder{taken: make(map[string]struct{})}
	for _, e := range mappingEntries(doc.Definitions) {
		b.taken[e.Key] = struct{}{}
	}

	cm := &ClientModel{
		Title:   doc.Title,
		Version: doc.Version,
		BaseURL: doc.BaseURL,
	}

	for _, e := range mappingEntries(doc.Definitions) {
		if m, ok := b.extractDefinition(e.Key, e.Value); ok {
			cm.Models = append(cm.Models, m)
		}
	}
	// Synthetic enums minted for inline property enum lists come after the
	// named definitions; the orderer moves them ahead of their owners.
	cm.Models = append(cm.Models, b.synthetic...)

	known := make(map[string]struct{}, len(cm.Models))
	for _, m := range cm.Models {
		known[m.Name] = struct{}{}
	}
	cm.Resources = b.extractResources(doc, cfg, known)
	cm.Diagnostics = b.diags

	return cm, nil
}

type builder struct {
	taken     map[string]struct{} // names claimed by definitions or synthetics
	synthetic []SchemaModel
	diags     []Diagnostic
}

func (b *builder) warn(code DiagCode, subject, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

// extractDefinition maps one definitions/components.schemas entry onto a
// SchemaModel, or records a MalformedSchema diagnostic and skips it.
func (b *builder) extractDefinition(name string, node *yaml.Node) (SchemaModel, bool) {
	node = resolveNode(node)
	if !isMapping(node) {
		b.warn(MalformedSchema, name, "definition is not a mapping")
		return SchemaModel{}, false
	}

	if enumNode := mappingValue(node, "enum"); enumNode != nil {
		values := enumValues(enumNode)
		if len(values) == 0 {
			b.warn(MalformedSchema, name, "enum has no values")
			return SchemaModel{}, false
		}
		return SchemaModel{Name: name, Kind: KindEnum, EnumValues: values}, true
	}

	typeName, _ := scalarString(mappingValue(node, "type"))
	props := mappingValue(node, "properties")
	if props != nil || typeName == "object" {
		return b.extractObject(name, node, props), true
	}

	// A definition that is itself a $ref aliases the target.
	if target := refTarget(node); target != "" {
		return SchemaModel{
			Name:       name,
			Kind:       KindAlias,
			AliasOf:    TypeRef{Name: target, Model: true},
			Referenced: []string{target},
		}, true
	}

	if prim, ok := primitiveType(typeName); ok {
		return SchemaModel{Name: name, Kind: KindAlias, AliasOf: TypeRef{Name: prim}}, true
	}
	if typeName == "array" {
		ref := b.itemsType(name, mappingValue(node, "items"))
		ref.Array = true
		m := SchemaModel{Name: name, Kind: KindAlias, AliasOf: ref}
		if ref.Model {
			m.Referenced = []string{ref.Name}
		}
		return m, true
	}

	b.warn(MalformedSchema, name, "definition has neither enum nor a recognizable object/primitive shape")
	return SchemaModel{}, false
}

func (b *builder) extractObject(name string, node, props *yaml.Node) SchemaModel {
	required := make(map[string]struct{})
	for _, r := range stringList(mappingValue(node, "required")) {
		required[r] = struct{}{}
	}

	m := SchemaModel{Name: name, Kind: KindObject}
	seen := make(map[string]struct{})
	for _, p := range mappingEntries(props) {
		ref := b.propertyType(name, p.Key, p.Value)
		_, req := required[p.Key]
		m.Fields = append(m.Fields, Field{Name: p.Key, Type: ref, Required: req})
		if ref.Model {
			if _, dup := seen[ref.Name]; !dup {
				seen[ref.Name] = struct{}{}
				m.Referenced = append(m.Referenced, ref.Name)
			}
		}
	}
	return m
}

// propertyType resolves a property node to a TypeRef, minting synthetic
// enum models for inline enum lists so they emit as named Enum classes.
func (b *builder) propertyType(owner, prop string, node *yaml.Node) TypeRef {
	node = resolveNode(node)
	if !isMapping(node) {
		return AnyType()
	}

	if target := refTarget(node); target != "" {
		return TypeRef{Name: target, Model: true}
	}

	if enumNode := mappingValue(node, "enum"); enumNode != nil {
		if values := enumValues(enumNode); len(values) > 0 {
			return TypeRef{Name: b.mintEnum(owner, prop, values), Model: true}
		}
	}

	typeName, _ := scalarString(mappingValue(node, "type"))
	if prim, ok := primitiveType(typeName); ok {
		return TypeRef{Name: prim}
	}
	if typeName == "array" {
		ref := b.itemsType(owner, mappingValue(node, "items"))
		ref.Array = true
		return ref
	}
	if typeName == "object" {
		// Inline anonymous objects degrade to any rather than minting types.
		return AnyType()
	}
	return AnyType()
}

func (b *builder) itemsType(owner string, items *yaml.Node) TypeRef {
	items = resolveNode(items)
	if !isMapping(items) {
		return AnyType()
	}
	if target := refTarget(items); target != "" {
		return TypeRef{Name: target, Model: true}
	}
	typeName, _ := scalarString(mappingValue(items, "type"))
	if prim, ok := primitiveType(typeName); ok {
		return TypeRef{Name: prim}
	}
	return AnyType()
}

// mintEnum registers a synthetic enum model named after owner and property,
// disambiguating against existing definition names.
func (b *builder) mintEnum(owner, prop string, values []any) string {
	base := owner + "_" + prop
	name := base
	for i := 2; ; i++ {
		if _, exists := b.taken[name]; !exists {
			break
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	b.taken[name] = struct{}{}
	b.synthetic = append(b.synthetic, SchemaModel{Name: name, Kind: KindEnum, EnumValues: values})
	return name
}

func enumValues(node *yaml.Node) []any {
	var values []any
	for _, v := range sequenceValues(node) {
		if val, ok := scalarValue(v); ok {
			values = append(values, val)
		}
	}
	return values
}

func refTarget(node *yaml.Node) string {
	ref, ok := scalarString(mappingValue(node, "$ref"))
	if !ok || ref == "" {
		return ""
	}
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}

func primitiveType(typeName string) (string, bool) {
	switch typeName {
	case "string":
		return PrimString, true
	case "integer":
		return PrimInteger, true
	case "number":
		return PrimNumber, true
	case "boolean":
		return PrimBoolean, true
	}
	return "", false
}

var knownMethods = map[string]HttpMethod{
	"get": GET, "post": POST, "put": PUT, "delete": DELETE,
	"patch": PATCH, "head": HEAD, "options": OPTIONS,
}

// Path-item keys that are legal but are not operations.
var pathItemKeys = map[string]struct{}{
	"parameters": {}, "summary": {}, "description": {}, "servers": {}, "$ref": {},
}

func (b *builder) extractResources(doc *Document, cfg *buildConfig, known map[string]struct{}) []ResourceModel {
	var resources []ResourceModel
	index := make(map[string]int)

	for _, p := range mappingEntries(doc.Paths) {
		res := resourceName(p.Key)
		if len(cfg.includeResources) > 0 {
			if _, ok := cfg.includeResources[res]; !ok {
				continue
			}
		}
		if _, excluded := cfg.excludeResources[res]; excluded {
			continue
		}
		item := resolveNode(p.Value)
		if !isMapping(item) {
			b.warn(UnsupportedOperationShape, p.Key, "path item is not a mapping")
			continue
		}

		for _, e := range mappingEntries(item) {
			method, ok := knownMethods[strings.ToLower(e.Key)]
			if !ok {
				if _, legal := pathItemKeys[strings.ToLower(e.Key)]; !legal {
					b.warn(UnsupportedOperationShape, e.Key+" "+p.Key, "unrecognized operation key")
				}
				continue
			}
			if len(cfg.methods) > 0 {
				if _, keep := cfg.methods[method]; !keep {
					continue
				}
			}
			op, ok := b.extractOperation(method, p.Key, e.Value, known)
			if !ok {
				continue
			}
			i, exists := index[res]
			if !exists {
				i = len(resources)
				index[res] = i
				resources = append(resources, ResourceModel{Name: res})
			}
			resources[i].Operations = append(resources[i].Operations, op)
		}
	}
	return resources
}

var placeholderRe = regexp.MustCompile(`\{([^/{}]+)\}`)

func (b *builder) extractOperation(method HttpMethod, path string, node *yaml.Node, known map[string]struct{}) (OperationModel, bool) {
	subject := string(method) + " " + path
	node = resolveNode(node)
	if !isMapping(node) {
		b.warn(UnsupportedOperationShape, subject, "operation is not a mapping")
		return OperationModel{}, false
	}

	op := OperationModel{
		Method:       method,
		Path:         path,
		Name:         operationName(method, path, node),
		ResponseType: AnyType(),
	}

	// Parameter sweep: collect path/query locations and a v2 body schema.
	paramLoc := make(map[string]string)
	var bodySchema *yaml.Node
	for _, pn := range sequenceValues(mappingValue(node, "parameters")) {
		if !isMapping(pn) {
			continue
		}
		pname, _ := scalarString(mappingValue(pn, "name"))
		loc, _ := scalarString(mappingValue(pn, "in"))
		switch loc {
		case "path":
			paramLoc[pname] = "path"
		case "query":
			paramLoc[pname] = "query"
			op.QueryParams = append(op.QueryParams, pname)
		case "body":
			bodySchema = mappingValue(pn, "schema")
		}
	}

	// Path params in template-appearance order, confirmed by the parameter
	// list; a placeholder without a declared parameter is still bound so the
	// generated call can fill the template.
	for _, match := range placeholderRe.FindAllStringSubmatch(path, -1) {
		name := match[1]
		if loc, declared := paramLoc[name]; !declared || loc == "path" {
			op.PathParams = append(op.PathParams, name)
		}
	}

	// OpenAPI 3.x shape: requestBody.content.<mime>.schema.
	if bodySchema == nil {
		if rb := mappingValue(node, "requestBody"); rb != nil {
			bodySchema = firstContentSchema(rb)
		}
	}
	if bodySchema != nil {
		ref := b.schemaType(subject, bodySchema, known)
		op.BodyType = &ref
	}

	op.ResponseType = b.responseType(subject, node, known)
	return op, true
}

// responseType resolves the success-response body: first 2xx status in
// document order, then "default", else any.
func (b *builder) responseType(subject string, node *yaml.Node, known map[string]struct{}) TypeRef {
	responses := mappingValue(node, "responses")
	var chosen *yaml.Node
	for _, e := range mappingEntries(responses) {
		if len(e.Key) == 3 && e.Key[0] == '2' {
			chosen = resolveNode(e.Value)
			break
		}
	}
	if chosen == nil {
		chosen = mappingValue(responses, "default")
	}
	if chosen == nil {
		return AnyType()
	}
	schema := mappingValue(chosen, "schema")
	if schema == nil {
		schema = firstContentSchema(chosen)
	}
	if schema == nil {
		return AnyType()
	}
	return b.schemaType(subject, schema, known)
}

// schemaType resolves an operation-level schema node to a TypeRef, dropping
// unknown references to any with a diagnostic so emitted code never names a
// type that has no definition.
func (b *builder) schemaType(subject string, schema *yaml.Node, known map[string]struct{}) TypeRef {
	schema = resolveNode(schema)
	if !isMapping(schema) {
		return AnyType()
	}
	if target := refTarget(schema); target != "" {
		if _, ok := known[target]; !ok {
			b.warn(UnresolvedReference, subject, "reference to unknown definition %q", target)
			return AnyType()
		}
		return TypeRef{Name: target, Model: true}
	}
	typeName, _ := scalarString(mappingValue(schema, "type"))
	if prim, ok := primitiveType(typeName); ok {
		return TypeRef{Name: prim}
	}
	if typeName == "array" {
		items := resolveNode(mappingValue(schema, "items"))
		if isMapping(items) {
			if target := refTarget(items); target != "" {
				if _, ok := known[target]; !ok {
					b.warn(UnresolvedReference, subject, "reference to unknown definition %q", target)
					return TypeRef{Name: PrimAny, Array: true}
				}
				return TypeRef{Name: target, Model: true, Array: true}
			}
			itemType, _ := scalarString(mappingValue(items, "type"))
			if prim, ok := primitiveType(itemType); ok {
				return TypeRef{Name: prim, Array: true}
			}
		}
		return TypeRef{Name: PrimAny, Array: true}
	}
	return AnyType()
}

func firstContentSchema(node *yaml.Node) *yaml.Node {
	for _, media := range mappingEntries(mappingValue(node, "content")) {
		if s := mappingValue(media.Value, "schema"); s != nil {
			return s
		}
	}
	return nil
}

// operationName derives the generated method name from operationId when
// present, else deterministically from method and path segments.
func operationName(method HttpMethod, path string, node *yaml.Node) string {
	if id, ok := scalarString(mappingValue(node, "operationId")); ok {
		name := sanitizeIdent(strcase.ToSnake(strings.TrimSpace(id)))
		if name != "" {
			if name[0] >= '0' && name[0] <= '9' {
				name = "op_" + name
			}
			return name
		}
	}
	parts := []string{string(method)}
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		seg = strings.Trim(seg, "{}")
		if seg == "" {
			continue
		}
		parts = append(parts, seg)
	}
	return sanitizeIdent(strcase.ToSnake(strings.Join(parts, "_")))
}

// resourceName reduces a path template to its grouping key: the sanitized
// first segment, "root" for the bare path.
func resourceName(path string) string {
	seg := strings.Trim(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	seg = strings.Trim(seg, "{}")
	seg = sanitizeIdent(strcase.ToSnake(seg))
	if seg == "" {
		return "root"
	}
	return seg
}

// sanitizeIdent collapses anything outside [a-z0-9_] and trims underscores,
// yielding a usable snake identifier.
func sanitizeIdent(s string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(sb.String(), "_")
}
