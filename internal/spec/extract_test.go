package spec

import (
	"context"
	"strings"
	"testing"
)

const sampleSwagger = `swagger: "2.0"
info:
  title: Pet Store
  version: "1.0.0"
host: petstore.example.com
basePath: /v2
schemes: [https]
paths:
  /pet/{petId}:
    get:
      operationId: getPetById
      parameters:
        - name: petId
          in: path
          required: true
          type: integer
      responses:
        "200":
          description: ok
          schema:
            $ref: '#/definitions/Pet'
  /pet:
    post:
      operationId: addPet
      parameters:
        - name: body
          in: body
          schema:
            $ref: '#/definitions/Pet'
      responses:
        "200":
          description: ok
          schema:
            $ref: '#/definitions/Pet'
  /pet/findByStatus:
    get:
      parameters:
        - name: status
          in: query
          type: string
      responses:
        "200":
          description: ok
          schema:
            type: array
            items:
              $ref: '#/definitions/Pet'
  /store/order/{orderId}:
    get:
      operationId: getOrderById
      parameters:
        - name: orderId
          in: path
          required: true
          type: integer
      responses:
        "200":
          description: ok
          schema:
            $ref: '#/definitions/Order'
definitions:
  Pet:
    type: object
    required: [name]
    properties:
      id:
        type: integer
      name:
        type: string
      category:
        $ref: '#/definitions/Category'
      tags:
        type: array
        items:
          $ref: '#/definitions/Tag'
      status:
        type: string
        enum: [available, pending, sold]
  Category:
    type: object
    properties:
      id:
        type: integer
      name:
        type: string
  Tag:
    type: object
    properties:
      name:
        type: string
  Order:
    type: object
    properties:
      id:
        type: integer
      status:
        $ref: '#/definitions/OrderStatus'
  OrderStatus:
    type: string
    enum: [placed, approved, delivered]
  PetId:
    type: integer
  Broken:
    description: nothing recognizable here
`

func buildSample(t *testing.T, opts ...BuildOption) *ClientModel {
	t.Helper()
	doc, err := Parse([]byte(sampleSwagger), "sample.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cm, err := BuildClientModel(context.Background(), doc, opts...)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return cm
}

func findModel(t *testing.T, cm *ClientModel, name string) SchemaModel {
	t.Helper()
	for _, m := range cm.Models {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("model %q not found", name)
	return SchemaModel{}
}

func TestBuildClientModel_Schemas(t *testing.T) {
	t.Parallel()
	cm := buildSample(t)

	pet := findModel(t, cm, "Pet")
	if pet.Kind != KindObject {
		t.Fatalf("Pet kind: got %q", pet.Kind)
	}
	if len(pet.Fields) != 5 {
		t.Fatalf("Pet fields: got %d", len(pet.Fields))
	}
	// Document order is preserved.
	want := []string{"id", "name", "category", "tags", "status"}
	for i, f := range pet.Fields {
		if f.Name != want[i] {
			t.Errorf("field %d: want %q got %q", i, want[i], f.Name)
		}
	}
	if pet.Fields[0].Required {
		t.Errorf("id should not be required")
	}
	if !pet.Fields[1].Required {
		t.Errorf("name should be required")
	}
	if tags := pet.Fields[3].Type; !tags.Array || !tags.Model || tags.Name != "Tag" {
		t.Errorf("tags type: got %+v", tags)
	}

	status := findModel(t, cm, "OrderStatus")
	if status.Kind != KindEnum {
		t.Fatalf("OrderStatus kind: got %q", status.Kind)
	}
	if len(status.EnumValues) != 3 || status.EnumValues[0] != "placed" || status.EnumValues[2] != "delivered" {
		t.Fatalf("OrderStatus values: got %v", status.EnumValues)
	}

	alias := findModel(t, cm, "PetId")
	if alias.Kind != KindAlias || alias.AliasOf.Name != PrimInteger {
		t.Fatalf("PetId alias: got %+v", alias)
	}
}

func TestBuildClientModel_InlineEnumMinted(t *testing.T) {
	t.Parallel()
	cm := buildSample(t)

	synth := findModel(t, cm, "Pet_status")
	if synth.Kind != KindEnum {
		t.Fatalf("Pet_status kind: got %q", synth.Kind)
	}
	if len(synth.EnumValues) != 3 || synth.EnumValues[0] != "available" {
		t.Fatalf("Pet_status values: got %v", synth.EnumValues)
	}

	pet := findModel(t, cm, "Pet")
	if st := pet.Fields[4].Type; !st.Model || st.Name != "Pet_status" {
		t.Fatalf("status field type: got %+v", st)
	}
	found := false
	for _, ref := range pet.Referenced {
		if ref == "Pet_status" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Pet.Referenced should include Pet_status: %v", pet.Referenced)
	}
}

func TestBuildClientModel_MalformedSkipped(t *testing.T) {
	t.Parallel()
	cm := buildSample(t)

	for _, m := range cm.Models {
		if m.Name == "Broken" {
			t.Fatalf("Broken should have been skipped")
		}
	}
	found := false
	for _, d := range cm.Diagnostics {
		if d.Code == MalformedSchema && d.Subject == "Broken" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected MalformedSchema diagnostic for Broken, got %v", cm.Diagnostics)
	}
}

func TestBuildClientModel_Resources(t *testing.T) {
	t.Parallel()
	cm := buildSample(t)

	if len(cm.Resources) != 2 {
		t.Fatalf("resources: got %d", len(cm.Resources))
	}
	// First-seen order.
	if cm.Resources[0].Name != "pet" || cm.Resources[1].Name != "store" {
		t.Fatalf("resource order: got %q, %q", cm.Resources[0].Name, cm.Resources[1].Name)
	}

	pet := cm.Resources[0]
	if len(pet.Operations) != 3 {
		t.Fatalf("pet operations: got %d", len(pet.Operations))
	}
	names := []string{pet.Operations[0].Name, pet.Operations[1].Name, pet.Operations[2].Name}
	if names[0] != "get_pet_by_id" || names[1] != "add_pet" {
		t.Fatalf("operation names: got %v", names)
	}
	// Fallback naming: method + path segments, snake_cased.
	if names[2] != "get_pet_find_by_status" {
		t.Fatalf("fallback name: got %q", names[2])
	}

	get := pet.Operations[0]
	if len(get.PathParams) != 1 || get.PathParams[0] != "petId" {
		t.Fatalf("path params: got %v", get.PathParams)
	}
	if len(get.QueryParams) != 0 {
		t.Fatalf("query params: got %v", get.QueryParams)
	}
	if get.BodyType != nil {
		t.Fatalf("unexpected body type")
	}
	if !get.ResponseType.Model || get.ResponseType.Name != "Pet" {
		t.Fatalf("response type: got %+v", get.ResponseType)
	}

	post := pet.Operations[1]
	if post.BodyType == nil || !post.BodyType.Model || post.BodyType.Name != "Pet" {
		t.Fatalf("body type: got %+v", post.BodyType)
	}

	search := pet.Operations[2]
	if len(search.QueryParams) != 1 || search.QueryParams[0] != "status" {
		t.Fatalf("search query params: got %v", search.QueryParams)
	}
	if rt := search.ResponseType; !rt.Array || rt.Name != "Pet" {
		t.Fatalf("search response type: got %+v", rt)
	}
}

func TestBuildClientModel_ResourceFilters(t *testing.T) {
	t.Parallel()

	cm := buildSample(t, WithIncludeResources([]string{"store"}))
	if len(cm.Resources) != 1 || cm.Resources[0].Name != "store" {
		t.Fatalf("include filter: got %+v", cm.Resources)
	}

	cm = buildSample(t, WithExcludeResources([]string{"store"}))
	if len(cm.Resources) != 1 || cm.Resources[0].Name != "pet" {
		t.Fatalf("exclude filter: got %+v", cm.Resources)
	}

	cm = buildSample(t, WithMethods([]HttpMethod{POST}))
	if len(cm.Resources) != 1 || len(cm.Resources[0].Operations) != 1 {
		t.Fatalf("method filter: got %+v", cm.Resources)
	}
	if cm.Resources[0].Operations[0].Name != "add_pet" {
		t.Fatalf("method filter op: got %q", cm.Resources[0].Operations[0].Name)
	}
}

func TestBuildClientModel_UnknownOperationKey(t *testing.T) {
	t.Parallel()
	doc, err := Parse([]byte(strings.TrimSpace(`
swagger: "2.0"
info:
  title: Odd
  version: "1"
paths:
  /thing:
    parameters: []
    fetch:
      responses:
        "200":
          description: ok
    get:
      responses:
        "200":
          description: ok
`)), "odd.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cm, err := BuildClientModel(context.Background(), doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// "fetch" is not an HTTP method; the GET still generates.
	if len(cm.Resources) != 1 || len(cm.Resources[0].Operations) != 1 {
		t.Fatalf("resources: got %+v", cm.Resources)
	}
	found := false
	for _, d := range cm.Diagnostics {
		if d.Code == UnsupportedOperationShape && strings.Contains(d.Subject, "fetch") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UnsupportedOperationShape diagnostic, got %v", cm.Diagnostics)
	}
}

func TestBuildClientModel_UnknownRefDegradesToAny(t *testing.T) {
	t.Parallel()
	doc, err := Parse([]byte(strings.TrimSpace(`
swagger: "2.0"
info:
  title: Dangling
  version: "1"
paths:
  /thing:
    post:
      parameters:
        - name: body
          in: body
          schema:
            $ref: '#/definitions/Missing'
      responses:
        "200":
          description: ok
          schema:
            $ref: '#/definitions/AlsoMissing'
definitions:
  Thing:
    type: object
    properties:
      name:
        type: string
`)), "dangling.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cm, err := BuildClientModel(context.Background(), doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	op := cm.Resources[0].Operations[0]
	if op.BodyType == nil || op.BodyType.Model || op.BodyType.Name != PrimAny {
		t.Fatalf("body type should degrade to any: %+v", op.BodyType)
	}
	if op.ResponseType.Model || op.ResponseType.Name != PrimAny {
		t.Fatalf("response type should degrade to any: %+v", op.ResponseType)
	}
	count := 0
	for _, d := range cm.Diagnostics {
		if d.Code == UnresolvedReference {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 UnresolvedReference diagnostics, got %d (%v)", count, cm.Diagnostics)
	}
}

func TestResourceName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"/user/{username}": "user",
		"/pet":             "pet",
		"/{id}":            "id",
		"/":                "root",
		"/store-items/x":   "store_items",
	}
	for path, want := range cases {
		if got := resourceName(path); got != want {
			t.Errorf("resourceName(%q): want %q got %q", path, want, got)
		}
	}
}
