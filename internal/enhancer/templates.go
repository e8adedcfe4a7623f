package enhancer

// EnhancePromptTemplate is the outbound prompt-enhancement instruction
// wrapped around the caller's raw prompt. It contains exactly one
// literal placeholder, {original_prompt}, substituted by RenderTemplate
// rather than a textual replace.
const EnhancePromptTemplate = `You are helping a developer refine a prompt they are about to send to an AI coding assistant. Rewrite the prompt below so it states its goal, constraints, and relevant files precisely enough for an agent to act on without further clarification. Keep the developer's intent and tone; do not invent requirements they did not ask for.

Wrap your rewritten prompt in <augment-enhanced-prompt> and </augment-enhanced-prompt> tags, with nothing else outside the tags.

Original prompt:
{original_prompt}`
