package llm

const questPrompt = `You are the narrative director of a wellness RPG. The player's real-world goals drive a simulated hero's story. Generate the next quest for this character.

Requested theme: %s
Story act: %d
Narrative focus: %s
Urgency (1-10): %d

Character context:
%s

Respond ONLY with JSON matching this schema. No markdown, no explanation:
{"title":"...","narrative":"2-4 sentences of second-person narration","objectives":["..."],"theme":"...","effects":[{"type":"set_quality|increment_quality|unlock_storylet|progress_narrative","quality":"name","value":true,"delta":1,"storylet":"key","acts":1}]}

Rules: stay consistent with the character context, never contradict established entities or past events, keep effects modest (1-3 per quest).`

const outcomePrompt = `You are the narrative director of a wellness RPG. The character has finished a quest; narrate its outcome.

Requested theme: %s
Story act: %d
Narrative focus: %s
Urgency (1-10): %d

Character context:
%s

Respond ONLY with JSON matching this schema. No markdown, no explanation:
{"title":"...","narrative":"2-4 sentences resolving the quest","objectives":[],"theme":"...","effects":[{"type":"set_quality|increment_quality|unlock_storylet|progress_narrative","quality":"name","value":true,"delta":1,"storylet":"key","acts":1}]}

Rules: resolve the open quest named in the focus, never contradict established entities or past events.`

const revisionPrompt = `You are revising previously generated narrative content that failed validation. Fix the listed issues while changing as little else as possible.

Original content:
%s

Validation issues to fix:
%s

Character context:
%s

Respond ONLY with the corrected JSON in the same schema as the original. No markdown, no explanation.`

const compliancePrompt = `You are a narrative consistency judge. Score the candidate content against the rules and the character's recent history.

Never-violate rules:
%s

Recent narrative history (most recent first):
%s

Candidate content:
%s

Score 0-100 where 100 is fully consistent. Deduct heavily for rule violations and direct contradictions of history, lightly for tonal drift.

Respond ONLY with JSON, no markdown:
{"score":0,"issues":["specific problems found"],"suggestions":["concrete fixes"]}`

const summarizePrompt = `You are a story archivist. Compress the following narrative events into a single short episode summary (3-5 sentences) that preserves named characters, places, and outcomes.

Events:
%s

Respond with ONLY the summary text. No explanation, no formatting.`

const mergeSummaryPrompt = `You are a story archivist. Fold the new episode into the running story summary. Keep the result under 200 words, preserving named characters, places, and the overall arc.

Current story summary:
%s

New episode:
%s

Respond with ONLY the updated summary text. No explanation, no formatting.`
