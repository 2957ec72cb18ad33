package pipeline

import (
	"fmt"
	"strings"
)

const extractionSystem = `You are an expert geographic information extraction specialist. Your task is to identify and extract geographic locations from emergency field reports with high precision.

Extract geographic locations from the title, summary, and description of field reports. Focus on:
- Countries
- States/provinces/regions
- Cities/towns/villages
- Districts/counties/administrative areas

Return results in valid JSON format with this exact structure:
{
    "countries": ["list of countries"],
    "states_regions": ["list of states/provinces/regions"],
    "cities_towns": ["list of cities/towns/villages"],
    "administrative_areas": ["list of districts, counties, etc."],
    "confidence_notes": "brief note about extraction confidence"
}

CRITICAL JSON FORMATTING RULES:
- Return ONLY valid JSON, no additional text or explanations
- Use double quotes for all strings
- Ensure all strings are properly closed with quotes
- No trailing commas
- No line breaks within string values
- Escape any quotes within string values using \"
- Keep location names concise and avoid very long descriptions

Rules:
- Extract ONLY political/administrative geographic entities
- Remove duplicates within the same field report
- Include locations even if mentioned only once
- Focus on emergency/disaster context locations
- Be thorough but accurate
- Return ONLY the JSON, no additional text`

func extractionPrompt(reportID, combinedText string) string {
	return fmt.Sprintf(`Extract all geographic locations from the following field report:
FIELD REPORT ID: %s

%s

Return only valid JSON with the extracted locations categorized as specified.`, reportID, combinedText)
}

const associationSystem = `You are a geographic expert with comprehensive knowledge of world administrative divisions, cities, and regional geography. Always return valid JSON only.`

func associationPrompt(reportID string, countries, states, cities []string) string {
	countriesStr := joinOr(countries, "No countries specified")
	statesStr := joinOr(states, "No states/regions")
	citiesStr := joinOr(cities, "No cities/towns")

	return fmt.Sprintf(`You are a geographic expert with extensive knowledge of world geography. Assign each location to its correct country using precise geographic knowledge.

CRITICAL INSTRUCTIONS:
- ONLY assign locations to countries you are 100%% certain about
- If you are unsure about any location, put it in unassigned_states or unassigned_cities
- Use your knowledge of actual administrative divisions and geographic boundaries
- Be extremely careful with similar-sounding place names from different countries
- Cities like Petropavlovsk-Kamchatsky belong to Russia (Kamchatka Peninsula)
- Double-check each assignment against your geographic knowledge

FIELD REPORT ID: %s
COUNTRIES: %s
STATES/REGIONS TO ASSIGN: %s
CITIES/TOWNS TO ASSIGN: %s

Return EXACTLY this JSON structure:
{
  "field_report_id": "%s",
  "countries": [%s],
  "assignments": [
    {"country": "country name", "states": ["states/regions for this country"], "cities": ["cities/towns for this country"]}
  ],
  "unassigned_states": ["states that don't belong to any mentioned country"],
  "unassigned_cities": ["cities that don't belong to any mentioned country"],
  "confidence_notes": "explanation of assignment logic"
}

ASSIGNMENT RULES:
1. Only assign locations to countries where you have high confidence
2. When in doubt, use unassigned_states or unassigned_cities
3. Consider geographic proximity and administrative boundaries
4. Verify each assignment against known geographic facts
5. Be conservative - it's better to leave something unassigned than assign it incorrectly

Return ONLY the JSON, no additional text.`,
		reportID, countriesStr, statesStr, citiesStr, reportID, quoteList(countries))
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
