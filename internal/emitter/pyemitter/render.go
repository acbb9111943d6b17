package pyemitter

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	genspec "github.com/oselz/swagger2client/internal/spec"
)

// Render concatenates the full client source: preamble, model declarations
// in the order the caller resolved, service classes in first-seen order,
// then the client class. The result is one self-contained Python file.
func Render(cm *genspec.ClientModel) string {
	kinds := make(map[string]genspec.SchemaKind, len(cm.Models))
	for _, m := range cm.Models {
		kinds[m.Name] = m.Kind
	}

	blocks := []string{renderPreamble(cm)}
	for _, m := range cm.Models {
		blocks = append(blocks, renderModel(m, kinds))
	}
	for _, r := range cm.Resources {
		blocks = append(blocks, renderService(r, kinds))
	}
	blocks = append(blocks, renderClient(cm))

	return strings.Join(blocks, "\n\n\n") + "\n"
}

func renderPreamble(cm *genspec.ClientModel) string {
	title := strings.TrimSpace(cm.Title)
	if title == "" {
		title = "API"
	}
	var b strings.Builder
	if v := strings.TrimSpace(cm.Version); v != "" {
		fmt.Fprintf(&b, "\"\"\"%s client (v%s).\n", title, v)
	} else {
		fmt.Fprintf(&b, "\"\"\"%s client.\n", title)
	}
	b.WriteString("\nGenerated by swagger2client. DO NOT EDIT.\n\"\"\"\n")
	b.WriteString("from __future__ import annotations\n\n")
	b.WriteString("from dataclasses import dataclass\n")
	b.WriteString("from enum import Enum\n")
	b.WriteString("from typing import Any, Dict, List, Optional\n\n")
	b.WriteString("import requests")
	if cm.BaseURL != "" {
		fmt.Fprintf(&b, "\n\nDEFAULT_BASE_URL = %s", pyLiteral(cm.BaseURL))
	}
	return b.String()
}

func renderModel(m genspec.SchemaModel, kinds map[string]genspec.SchemaKind) string {
	switch m.Kind {
	case genspec.KindEnum:
		return renderEnum(m)
	case genspec.KindAlias:
		return fmt.Sprintf("%s = %s", className(m.Name), pyType(m.AliasOf))
	default:
		return renderObject(m, kinds)
	}
}

func renderEnum(m genspec.SchemaModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "class %s(Enum):\n", className(m.Name))
	used := make(map[string]int)
	for _, v := range m.EnumValues {
		fmt.Fprintf(&b, "    %s = %s\n", enumMemberName(v, used), pyLiteral(v))
	}
	b.WriteString("\n    def __str__(self) -> str:\n        return str(self.value)")
	return b.String()
}

func renderObject(m genspec.SchemaModel, kinds map[string]genspec.SchemaKind) string {
	// Required fields precede optional ones: dataclass fields without
	// defaults may not follow defaulted ones.
	var fields []genspec.Field
	for _, f := range m.Fields {
		if f.Required {
			fields = append(fields, f)
		}
	}
	for _, f := range m.Fields {
		if !f.Required {
			fields = append(fields, f)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@dataclass\nclass %s:\n", className(m.Name))
	for _, f := range fields {
		if f.Required {
			fmt.Fprintf(&b, "    %s: %s\n", attrName(f.Name), pyType(f.Type))
		} else {
			fmt.Fprintf(&b, "    %s: Optional[%s] = None\n", attrName(f.Name), pyType(f.Type))
		}
	}

	b.WriteString("\n    def to_payload(self) -> Dict[str, Any]:\n")
	b.WriteString("        payload: Dict[str, Any] = {}\n")
	for _, f := range fields {
		expr := serializeExpr("self."+attrName(f.Name), f.Type, kinds)
		if f.Required {
			fmt.Fprintf(&b, "        payload[%s] = %s\n", pyLiteral(f.Name), expr)
		} else {
			fmt.Fprintf(&b, "        if self.%s is not None:\n            payload[%s] = %s\n",
				attrName(f.Name), pyLiteral(f.Name), expr)
		}
	}
	b.WriteString("        return payload")
	return b.String()
}

// serializeExpr picks the serialization form by the field's static type:
// models serialize through to_payload, enums through .value, everything
// else passes through raw.
func serializeExpr(expr string, t genspec.TypeRef, kinds map[string]genspec.SchemaKind) string {
	if !t.Model {
		return expr
	}
	kind := kinds[t.Name]
	if t.Array {
		switch kind {
		case genspec.KindObject:
			return fmt.Sprintf("[item.to_payload() for item in %s]", expr)
		case genspec.KindEnum:
			return fmt.Sprintf("[item.value for item in %s]", expr)
		}
		return expr
	}
	switch kind {
	case genspec.KindObject:
		return expr + ".to_payload()"
	case genspec.KindEnum:
		return expr + ".value"
	}
	return expr
}

func renderService(r genspec.ResourceModel, kinds map[string]genspec.SchemaKind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "class %s:\n", serviceClassName(r.Name))
	b.WriteString("    def __init__(self, base_url: str, headers: Dict[str, str]) -> None:\n")
	b.WriteString("        self.base_url = base_url\n")
	b.WriteString("        self.headers = headers\n")

	used := make(map[string]int)
	for _, op := range r.Operations {
		b.WriteString("\n")
		renderOperation(&b, op, kinds, used)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOperation(b *strings.Builder, op genspec.OperationModel, kinds map[string]genspec.SchemaKind, used map[string]int) {
	name := uniqueName(op.Name, used)

	args := []string{"self"}
	path := op.Path
	for _, p := range op.PathParams {
		arg := attrName(p)
		args = append(args, arg)
		path = strings.ReplaceAll(path, "{"+p+"}", "{"+arg+"}")
	}
	for _, q := range op.QueryParams {
		args = append(args, attrName(q))
	}
	if op.BodyType != nil {
		args = append(args, "data: "+pyType(*op.BodyType))
	}

	fmt.Fprintf(b, "    def %s(%s) -> %s:\n", name, strings.Join(args, ", "), pyType(op.ResponseType))
	fmt.Fprintf(b, "        url = f\"{self.base_url}%s\"\n", path)
	if len(op.QueryParams) == 0 {
		b.WriteString("        params: Dict[str, Any] = {}\n")
	} else {
		pairs := make([]string, 0, len(op.QueryParams))
		for _, q := range op.QueryParams {
			pairs = append(pairs, fmt.Sprintf("%s: %s", pyLiteral(q), attrName(q)))
		}
		fmt.Fprintf(b, "        params: Dict[str, Any] = {%s}\n", strings.Join(pairs, ", "))
	}

	call := fmt.Sprintf("requests.%s(url, headers=self.headers, params=params", op.Method)
	if op.BodyType != nil {
		call += ", json=" + serializeExpr("data", *op.BodyType, kinds)
	}
	call += ")"
	fmt.Fprintf(b, "        response = %s\n", call)
	// Error bodies come back the same way as success bodies; callers check
	// the shape themselves.
	b.WriteString("        return response.json()\n")
}

func renderClient(cm *genspec.ClientModel) string {
	name := strings.TrimSpace(cm.ClassName)
	if name == "" {
		name = "APIClient"
	}

	baseArg := "base_url: str"
	if cm.BaseURL != "" {
		baseArg = "base_url: str = DEFAULT_BASE_URL"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "class %s:\n", name)
	fmt.Fprintf(&b, "    def __init__(self, %s, api_key: Optional[str] = None) -> None:\n", baseArg)
	b.WriteString("        self.base_url = base_url\n")
	b.WriteString("        self.headers: Dict[str, str] = {\"Content-Type\": \"application/json\"}\n")
	b.WriteString("        if api_key:\n")
	b.WriteString("            self.headers[\"Authorization\"] = f\"Bearer {api_key}\"\n")
	for _, r := range cm.Resources {
		fmt.Fprintf(&b, "        self.%s = %s(self.base_url, self.headers)\n", attrName(r.Name), serviceClassName(r.Name))
	}
	return strings.TrimRight(b.String(), "\n")
}

func pyType(t genspec.TypeRef) string {
	var base string
	if t.Model {
		base = className(t.Name)
	} else {
		switch t.Name {
		case genspec.PrimString:
			base = "str"
		case genspec.PrimInteger:
			base = "int"
		case genspec.PrimNumber:
			base = "float"
		case genspec.PrimBoolean:
			base = "bool"
		default:
			base = "Any"
		}
	}
	if t.Array {
		return "List[" + base + "]"
	}
	return base
}

func className(name string) string {
	cleaned := strcase.ToCamel(sanitizeName(name))
	if cleaned == "" {
		return "Unnamed"
	}
	if cleaned[0] >= '0' && cleaned[0] <= '9' {
		cleaned = "Model" + cleaned
	}
	return cleaned
}

func serviceClassName(resource string) string {
	return className(resource) + "Service"
}

// pythonKeywords guards generated attribute and parameter names.
var pythonKeywords = map[string]struct{}{
	"and": {}, "as": {}, "assert": {}, "async": {}, "await": {}, "break": {},
	"class": {}, "continue": {}, "def": {}, "del": {}, "elif": {}, "else": {},
	"except": {}, "finally": {}, "for": {}, "from": {}, "global": {}, "if": {},
	"import": {}, "in": {}, "is": {}, "lambda": {}, "nonlocal": {}, "not": {},
	"or": {}, "pass": {}, "raise": {}, "return": {}, "try": {}, "while": {},
	"with": {}, "yield": {}, "None": {}, "True": {}, "False": {},
}

func attrName(name string) string {
	out := strcase.ToSnake(sanitizeName(name))
	if out == "" {
		out = "value"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "field_" + out
	}
	if _, kw := pythonKeywords[out]; kw {
		out += "_"
	}
	return out
}

func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// enumMemberName sanitizes a literal into an uppercase identifier; repeat
// names get a numeric suffix.
func enumMemberName(v any, used map[string]int) string {
	base := strings.ToUpper(sanitizeName(fmt.Sprintf("%v", v)))
	if base == "" {
		base = "VALUE"
	}
	if base[0] >= '0' && base[0] <= '9' {
		base = "VALUE_" + base
	}
	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s_%d", base, n)
	}
	return base
}

func uniqueName(name string, used map[string]int) string {
	used[name]++
	if n := used[name]; n > 1 {
		return fmt.Sprintf("%s_%d", name, n)
	}
	return name
}

// pyLiteral renders a Go value as a Python literal.
func pyLiteral(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case nil:
		return "None"
	default:
		return fmt.Sprintf("%v", val)
	}
}
