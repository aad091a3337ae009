// internal/integrations/transcription/models.go
package transcription

import "github.com/google/generative-ai-go/genai"

// fieldSchema lists the profile keys a voice note may fill. Keys are the
// profile's JSON names so the result merges without translation.
var fieldSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"fullName":            {Type: genai.TypeString},
		"email":               {Type: genai.TypeString},
		"phone":               {Type: genai.TypeString},
		"familyMonthlyIncome": {Type: genai.TypeString, Description: "Monthly family income as spoken, e.g. 30.000"},
		"propertyIdentifier":  {Type: genai.TypeString, Description: "Property code or condominium name"},
		"propertyOfInterest": {
			Type: genai.TypeString,
			Enum: []string{"penthouse", "house", "standard_apartment", "land"},
		},
		"paymentMethod": {
			Type: genai.TypeString,
			Enum: []string{"financing", "cash", "trade_in"},
		},
		"financingAmount":      {Type: genai.TypeString},
		"tradeInPropertyValue": {Type: genai.TypeString},
	},
}

const extractPrompt = `Extract the details spoken in this audio to fill a real-estate visit request form.
Identify the customer's name, e-mail, phone, monthly family income (as text), property code,
property type and payment method. Map "cobertura" or penthouse to penthouse, "casa" or house to house,
"apartamento" or apartment to standard_apartment and "terreno" or land to land.
Leave out any field the speaker did not mention. Return JSON only.`
