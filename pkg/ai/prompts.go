package ai

const ExtractionPrompt = `
# Task Context
You are an assistant that extracts the physical and conceptual structure of a
problem statement so it can be turned into a diagram. You will be provided
with one statement.

# Background Data
%s

# Detailed Task Description & Rules
- Extract every entity the statement mentions and classify it:
  * "object" - a physical thing (block, ball, beam, car)
  * "component" - a part of a schematic (resistor, battery, capacitor, switch)
  * "quantity" - a named measurable (voltage V, mass m, resistance R)
  * "concept" - an abstract notion (Ohm's law, equilibrium, friction as a topic)
  * "force" - a force acting on something (gravity, tension, normal force)
  * "parameter" - a given constant or boundary condition (angle of incline, spring constant)
- Extract every relation between entities as a (subject, relation, object) triple:
  * "has_value" - a quantity has a numeric value
  * "has_unit" - a quantity is measured in a unit
  * "part_of" - an entity belongs to a larger assembly
  * "connected_to" - two components are electrically or mechanically joined
  * "acts_on" - a force acts on an object
  * "causes" - one phenomenon produces another
  * "related_to" - any other meaningful association
- Use the exact wording from the statement for entity text; do not rename.
- Do not invent entities or relations that the statement does not support.
- Keep entity text short: the noun phrase, not the whole sentence.

# Examples
Statement: "A 12 V battery is connected to a resistor of 4 ohms."
Entities: battery (component), resistor (component), 12 V (quantity), 4 ohms (quantity)
Relations: (battery, connected_to, resistor), (battery, has_value, 12 V), (resistor, has_value, 4 ohms)

# Output Formatting
Return a JSON object with "entities" and "relations" arrays matching the
provided schema. Return empty arrays if the statement contains nothing to
extract.
`

const ExtractionChunkPrompt = `
# Task Context
You are an assistant that extracts the physical and conceptual structure of a
problem statement so it can be turned into a diagram. The statement is long
and has been split; you will be provided with one chunk and the entities
already found in earlier chunks.

# Background Data
Entities already found:
%s

Current chunk:
%s

# Detailed Task Description & Rules
- Follow the same extraction rules as for a complete statement: classify
  entities as object, component, quantity, concept, force or parameter, and
  report relations as (subject, relation, object) triples.
- When this chunk mentions an entity already found, reuse its exact text so
  the results can be merged.
- Only report entities and relations grounded in the current chunk.

# Output Formatting
Return a JSON object with "entities" and "relations" arrays matching the
provided schema. Return empty arrays if the chunk contains nothing new.
`

const PlanTitlePrompt = `
# Task Context
You are an assistant that writes a short title for a diagram-planning request.

# Background Data
%s

# Detailed Task Description & Rules
- Summarize what the diagram will show in at most eight words.
- Name the concrete system, not the task ("Series circuit with two resistors",
  not "Diagram of the given problem").
- Return the title only, without quotes or trailing punctuation.
`
