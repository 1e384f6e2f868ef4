package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"catalog-view-service/internal/core/domain"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemasFS embed.FS

var compiledSchemas = make(map[string]*jsonschema.Schema)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	// Сначала добавляем все схемы как ресурсы, чтобы они могли ссылаться
	// друг на друга через $ref, потом компилируем и регистрируем по имени
	// файла без расширения.
	err := fs.WalkDir(schemasFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		file, err := schemasFS.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := compiler.AddResource(path, file); err != nil {
			log.Fatalf("failed to add schema resource %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("error walking and adding schema resources: %v", err)
	}

	err = fs.WalkDir(schemasFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		schema, err := compiler.Compile(path)
		if err != nil {
			log.Fatalf("could not compile schema %s: %v", path, err)
		}
		key := strings.TrimSuffix(strings.TrimPrefix(path, "schemas/"), ".json")
		compiledSchemas[key] = schema
		return nil
	})
	if err != nil {
		log.Fatalf("error compiling schemas: %v", err)
	}
}

// SchemaValidator валидирует формы и события ленты по встроенным JSON
// Schema. Реализует usecase.FormValidator.
type SchemaValidator struct{}

func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

// ValidateForm проверяет форму публикации (partial=false, обязательные поля
// требуются) или редактирования (partial=true). Нарушения возвращаются как
// domain.ValidationError с сообщениями по полям - в хранилище такая форма
// не уходит.
func (v *SchemaValidator) ValidateForm(form domain.ListingForm, partial bool) error {
	key := "listing_form_create"
	if partial {
		key = "listing_form_edit"
	}
	return validate(key, form)
}

// ValidateChangeEvent проверяет сырое событие ленты изменений до того, как
// оно попадет в движок реконсиляции. Отравленное сообщение не должно
// ломать view.
func (v *SchemaValidator) ValidateChangeEvent(raw []byte) error {
	schema, ok := compiledSchemas["change_event"]
	if !ok {
		return fmt.Errorf("schema change_event is not registered")
	}
	var instance interface{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("change event is not valid JSON: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("change event failed schema validation: %w", err)
	}
	return nil
}

func validate(key string, payload interface{}) error {
	schema, ok := compiledSchemas[key]
	if !ok {
		return fmt.Errorf("schema %s is not registered", key)
	}

	// Через marshal/decode, чтобы схема видела ровно ту JSON-форму,
	// которая ходит по проводу (omitempty, имена полей).
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for validation: %w", err)
	}
	var instance interface{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&instance); err != nil {
		return fmt.Errorf("failed to decode payload for validation: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return &domain.ValidationError{Fields: flattenCauses(ve)}
		}
		return err
	}
	return nil
}

// flattenCauses собирает листовые нарушения в карту "поле -> сообщение".
func flattenCauses(ve *jsonschema.ValidationError) map[string]string {
	fields := make(map[string]string)
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.TrimPrefix(e.InstanceLocation, "/")
			field = strings.ReplaceAll(field, "/", ".")
			if field == "" {
				field = "_"
			}
			if _, exists := fields[field]; !exists {
				fields[field] = e.Message
			}
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return fields
}
