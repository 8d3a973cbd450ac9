package docs

const overviewPrompt = `You are a data architect. Analyze this schema overview and write project documentation as JSON.

Tables and columns:
%s
Total records: %d

The JSON must have:
- title: a specific, non-generic title (e.g. "E-commerce Operations Audit").
- description: 2 concise sentences on the goal of auditing this dataset.
- context: 2 sentences on what the dataset represents.
- value: an array of 3 specific reasons the data is valuable to a business.
- key_entities: an array of the 3-5 most important business entities.

Be specific to the column names. Respond with valid JSON only.`

const documentationPrompt = `You are a senior data architect and business consultant. Write a documentation report for this dataset.

Tables and columns:
%s
Total records: %d

Respond with a JSON object with these keys:
- title: a specific, professional title.
- executive_summary: one paragraph on what the dataset represents and why it matters.
- architecture_overview: 1-2 paragraphs on how the tables relate in a business workflow.
- key_entities: array of {"name": "...", "description": "..."}.
- business_utility: 3-5 concrete ways a company can use this data.
- data_quality_narrative: an assessment based on the structure and the quality scores below.

Quality scores per table:
%s`

const tableSummaryPrompt = `Summarize the table %q for a business reader.

Schema:
%s

Quality metrics:
%s

Respond with JSON: {"summary": "<2-3 sentences on what the table holds and how trustworthy it is>", "risks": ["<most important data quality risks, at most 5>"]}`

const chatPrompt = `You are the InsightDB assistant. Help the user understand their data.

Project context:
%s

USER QUESTION: %q

Guidelines:
- Be professional, helpful and concise.
- Use the business context above; cite column names or metrics when relevant.
- Do not use markdown formatting except **word** for emphasis.
- If the question is about data you do not have, say so politely.`

const outlierPrompt = `Explain why this value might be an outlier, or why it might be valid, given its row.
Table: %s
Column: %s
Value: %v
Row: %s

Answer in one sentence.`
