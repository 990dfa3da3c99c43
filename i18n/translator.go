package i18n

import "fmt"

// Translator retrieves localized messages for issue codes.
// data provides optional structured parameters to embed in the message
// (for example, "min", "max", "got", "key").
type Translator interface {
	Message(code string, data map[string]any) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]any) string {
	base := t.base(code)
	switch code {
	case "required", "dependent_required", "unevaluated_property", "additional_property", "property_name", "invalid_property":
		if k, ok := data["key"]; ok {
			return fmt.Sprintf("%s: %v", base, k)
		}
	case "unevaluated_item", "invalid_item":
		if i, ok := data["index"]; ok {
			return fmt.Sprintf("%s: %v", base, i)
		}
	case "invalid_type":
		if w, ok := data["want"]; ok {
			if g, ok2 := data["got"]; ok2 {
				return fmt.Sprintf("%s: want %v, got %v", base, w, g)
			}
			return fmt.Sprintf("%s: want %v", base, w)
		}
	case "too_small", "too_big", "too_short", "too_long",
		"too_few_items", "too_many_items", "too_few_properties", "too_many_properties",
		"contains_too_few", "contains_too_many":
		if l, ok := data["limit"]; ok {
			if g, ok2 := data["got"]; ok2 {
				return fmt.Sprintf("%s: limit %v, got %v", base, l, g)
			}
			return fmt.Sprintf("%s: limit %v", base, l)
		}
	case "multiple_of":
		if d, ok := data["divisor"]; ok {
			return fmt.Sprintf("%s: %v", base, d)
		}
	case "invalid_format":
		if f, ok := data["format"]; ok {
			return fmt.Sprintf("%s: %v", base, f)
		}
	case "one_of_many_match":
		if b, ok := data["branches"]; ok {
			return fmt.Sprintf("%s: %v", base, b)
		}
	}
	return base
}

func (t dictTranslator) base(code string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_type":
			return "型が不正です"
		case "required":
			return "必須プロパティが不足しています"
		case "dependent_required":
			return "依存する必須プロパティが不足しています"
		case "invalid_enum":
			return "許可された値のいずれでもありません"
		case "invalid_const":
			return "固定値と一致しません"
		case "too_small":
			return "小さすぎます"
		case "too_big":
			return "大きすぎます"
		case "too_short":
			return "短すぎます"
		case "too_long":
			return "長すぎます"
		case "too_few_items":
			return "要素が少なすぎます"
		case "too_many_items":
			return "要素が多すぎます"
		case "too_few_properties":
			return "プロパティが少なすぎます"
		case "too_many_properties":
			return "プロパティが多すぎます"
		case "pattern":
			return "パターンに一致しません"
		case "multiple_of":
			return "倍数ではありません"
		case "arithmetic_error":
			return "数値演算エラー"
		case "unique_items":
			return "要素が重複しています"
		case "invalid_format":
			return "フォーマットが不正です"
		case "property_name":
			return "プロパティ名が不正です"
		case "invalid_property":
			return "プロパティが不正です"
		case "invalid_item":
			return "要素が不正です"
		case "additional_property":
			return "追加のプロパティは許可されていません"
		case "unevaluated_property":
			return "未評価のプロパティは許可されていません"
		case "unevaluated_item":
			return "未評価の要素は許可されていません"
		case "contains_too_few":
			return "一致する要素が少なすぎます"
		case "contains_too_many":
			return "一致する要素が多すぎます"
		case "all_of":
			return "allOf のいずれかのスキーマに一致しません"
		case "any_of":
			return "anyOf のどのスキーマにも一致しません"
		case "one_of_no_match":
			return "oneOf のどのスキーマにも一致しません"
		case "one_of_many_match":
			return "oneOf の複数のスキーマに一致しました"
		case "not":
			return "not のスキーマに一致してしまいました"
		case "conditional":
			return "条件付きスキーマに一致しません"
		case "dependent_schema":
			return "依存スキーマに一致しません"
		case "ref_failed":
			return "参照先のスキーマに一致しません"
		case "always_reject":
			return "スキーマは常に拒否します"
		case "parse_error":
			return "解析エラー"
		}
	default: // "en"
		switch code {
		case "invalid_type":
			return "invalid type"
		case "required":
			return "required property missing"
		case "dependent_required":
			return "dependent required property missing"
		case "invalid_enum":
			return "value is not one of the allowed values"
		case "invalid_const":
			return "value does not match the constant"
		case "too_small":
			return "too small"
		case "too_big":
			return "too big"
		case "too_short":
			return "too short"
		case "too_long":
			return "too long"
		case "too_few_items":
			return "too few items"
		case "too_many_items":
			return "too many items"
		case "too_few_properties":
			return "too few properties"
		case "too_many_properties":
			return "too many properties"
		case "pattern":
			return "does not match pattern"
		case "multiple_of":
			return "not a multiple of"
		case "arithmetic_error":
			return "arithmetic error"
		case "unique_items":
			return "items are not unique"
		case "invalid_format":
			return "invalid format"
		case "property_name":
			return "invalid property name"
		case "invalid_property":
			return "invalid property"
		case "invalid_item":
			return "invalid item"
		case "additional_property":
			return "additional property not allowed"
		case "unevaluated_property":
			return "unevaluated property not allowed"
		case "unevaluated_item":
			return "unevaluated item not allowed"
		case "contains_too_few":
			return "too few matching items"
		case "contains_too_many":
			return "too many matching items"
		case "all_of":
			return "does not match all schemas"
		case "any_of":
			return "does not match any schema"
		case "one_of_no_match":
			return "does not match exactly one schema (no match)"
		case "one_of_many_match":
			return "matches more than one schema"
		case "not":
			return "must not match the given schema"
		case "conditional":
			return "does not match the conditional schema"
		case "dependent_schema":
			return "does not match the dependent schema"
		case "ref_failed":
			return "does not match the referenced schema"
		case "always_reject":
			return "schema always rejects"
		case "parse_error":
			return "parse error"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]any) string { return currentTranslator.Message(code, data) }
