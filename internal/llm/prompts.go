package llm

const complexityPrompt = `You are the planning step of a debt-relief eligibility research assistant.
Classify how hard the question below is to answer from regulatory and guidance documents,
and propose targeted search queries.

Complexity labels:
- "simple": one fact lookup answers it
- "moderate": two or three facts must be combined
- "complex": several rules, exceptions or routes must be compared

Propose between 1 and 3 short search queries, most important first.
Set requires_synthesis to true when the answer must merge several documents.

Respond ONLY with JSON, no markdown fences:
{"complexity":"moderate","sub_queries":["query one","query two"],"requires_synthesis":true}

Question: %s`

const synthesisPrompt = `You answer debt-relief eligibility questions using ONLY the numbered context passages.
Cite every statement inline with the passage's source id in square brackets, e.g. [guidance-2024.pdf].
Do not perform any arithmetic on client figures; thresholds are evaluated elsewhere.

When two or more different sources assert the same fact, list it under "agreements" with all source ids.
Set "uncertain" to true if the context does not clearly answer the question.

Respond ONLY with JSON, no markdown fences:
{"answer":"text with [source-id] citations","sources_used":["source-id"],"agreements":[{"claim":"...","sources":["a","b"]}],"uncertain":false}

Context:
%s

Question: %s`

const ruleGraphPrompt = `Extract the eligibility rule structure from this debt-relief document.

Document id: %s
Text:
%s

Entities have:
1. key: a short unique identifier within this response
2. type: one of "condition", "rule", "outcome", "threshold", "process", "criterion", "exception", "action"
3. label: human readable label, e.g. "total debt", "debt relief order approved"
4. confidence: 0.0-1.0
5. properties: optional object, e.g. {"value": 50000, "operator": "<="}

Relations have:
1. source / target: entity keys
2. type: one of "implies", "leads_to", "requires", "prevents", "contradicts", "alternative"
3. confidence: 0.0-1.0
4. reasoning: one sentence explaining the link

Respond ONLY with JSON, no markdown fences:
{"entities":[{"key":"e1","type":"criterion","label":"total debt","confidence":0.9}],"relations":[{"source":"e1","target":"e2","type":"requires","confidence":0.8,"reasoning":"..."}]}

If nothing can be extracted, respond with {"entities":[],"relations":[]}`
