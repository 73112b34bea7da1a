package prompts

import (
	"fmt"

	"github.com/shopchat/shopchat/internal/lang"
)

// Operation identifies a prompt template in the registry.
type Operation string

const (
	OpSystem           Operation = "system"
	OpFilter           Operation = "filter"
	OpEvaluate         Operation = "evaluate"
	OpAnswer           Operation = "answer"
	OpTranscriptHeader Operation = "transcript_header"
)

// Persona roles passed to the system prompt.
const (
	RoleShoppingAssistant = "shopping assistant"
	RoleProductFiltering  = "product filtering"
	RoleAccuracyEval      = "accuracy evaluation"
)

type key struct {
	op Operation
	l  lang.Lang
}

var registry = map[key]string{
	{OpSystem, lang.Arabic}:  "أنت مساعد ذكي باللغة العربية. مهمتك: %s.",
	{OpSystem, lang.English}: "You are a smart assistant in English. Your role: %s.",

	{OpTranscriptHeader, lang.Arabic}:  "\n\n📦 نتائج %s:\n",
	{OpTranscriptHeader, lang.English}: "\n\n📦 Results for %s:\n",

	{OpAnswer, lang.Arabic}: `
أنت مساعد تسوق خبير لمقارنة المنتجات وتقديم التوصيات.
سؤال المستخدم: %s

البيانات المتاحة:
%s
`,
	{OpAnswer, lang.English}: `
You are a shopping assistant expert for product comparison and recommendations.
User question: %s

Available data:
%s
`,

	{OpFilter, lang.Arabic}: `
أنت مساعد ذكي لتصفية وتصنيف المنتجات وفق سياق سؤال المستخدم.

تعليمات:
1- أعد فقط المنتجات المتعلقة بالسؤال بشكل مباشر.
2- صنفها حسب الصلة (الأكثر صلة أولاً).
3- أعد النتيجة بصيغة JSON مع المفاتيح: title, price, source, link, image.

السؤال الحالي: %s
المنتجات المسترجعة:
%s

أعد فقط المنتجات المتعلقة بالسؤال وفق النمط أعلاه.
`,
	{OpFilter, lang.English}: `
You are a smart assistant for filtering and classifying products based on the user's query.

Instructions:
1- Return only products directly relevant to the question.
2- Sort by relevance (most relevant first).
3- Return JSON with keys: title, price, source, link, image.

Current question: %s
Retrieved products:
%s

Return only products relevant to the question.
`,

	{OpEvaluate, lang.Arabic}: `
أنت مساعد تقييم ذكي للإجابات.
السؤال: %s
البيانات المتاحة:
%s

الإجابة التي قدمها AI:
%s

قيم **Faithfulness** و **Completeness** و **Relevance** من 10 إلى 100 لكل معيار.
حتى لو لم يكن التطابق كامل، أعطي درجة جزئية تعكس دقة الإجابة العامة.
أعطني النتيجة بصيغة JSON: {"faithfulness":..., "completeness":..., "relevance":..., "total":...}
`,
	{OpEvaluate, lang.English}: `
You are a smart answer evaluation assistant.
Question: %s
Available data:
%s

AI Answer:
%s

Rate **Faithfulness**, **Completeness**, and **Relevance** from 10 to 100 each.
Even if not perfect, provide partial scores reflecting overall accuracy.
Return JSON: {"faithfulness":..., "completeness":..., "relevance":..., "total":...}
`,
}

func lookup(op Operation, l lang.Lang) string {
	if tpl, ok := registry[key{op, l}]; ok {
		return tpl
	}
	return registry[key{op, lang.English}]
}

// System renders the localized persona prompt for the given role.
func System(role string, l lang.Lang) string {
	return fmt.Sprintf(lookup(OpSystem, l), role)
}

// Answer renders the final shopping-answer prompt over the evidence transcript.
func Answer(q, transcript string, l lang.Lang) string {
	return fmt.Sprintf(lookup(OpAnswer, l), q, transcript)
}

// Filter renders the relevance-filter prompt over a candidate listing.
func Filter(q, productList string, l lang.Lang) string {
	return fmt.Sprintf(lookup(OpFilter, l), q, productList)
}

// Evaluate renders the accuracy-evaluation prompt.
func Evaluate(q, contextList, answer string, l lang.Lang) string {
	return fmt.Sprintf(lookup(OpEvaluate, l), q, contextList, answer)
}

// TranscriptHeader renders the per-item section header of the evidence
// transcript.
func TranscriptHeader(item string, l lang.Lang) string {
	return fmt.Sprintf(lookup(OpTranscriptHeader, l), item)
}
