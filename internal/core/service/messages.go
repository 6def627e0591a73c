package service

import (
	"strconv"
	"strings"
)

const (
	msgProductAdded    = "product_added"
	msgProductMerged   = "product_merged"
	msgPriceUpdated    = "price_updated"
	msgQuantityRemoved = "quantity_removed"
	msgProductDeleted  = "product_deleted"
	msgLowStock        = "low_stock"
	msgProductsListed  = "products_listed"
	msgProductFound    = "product_found"
	msgProductNotFound = "product_not_found"
	msgSearchEmpty     = "search_empty"
	msgSearchFound     = "search_found"
	msgStockSummary    = "stock_summary"
	msgIncomplete      = "incomplete"
	msgUnknown         = "unknown"
	msgDuplicate       = "duplicate"
)

// messages holds response templates per language. Missing keys fall back to English.
var messages = map[string]map[string]string{
	"en": {
		msgProductAdded:    "Product {product} {quantity} kg added at ₹{price} per kg",
		msgProductMerged:   "Product {product} now {quantity} kg at ₹{price} per kg",
		msgPriceUpdated:    "Price updated for {product} to ₹{price} per kg",
		msgQuantityRemoved: "Removed {quantity} kg of {product}",
		msgProductDeleted:  "Product {product} deleted",
		msgLowStock:        "Low stock alert",
		msgProductsListed:  "You have {count} products in inventory",
		msgProductFound:    "{product}: {quantity} kg at ₹{price} per kg",
		msgProductNotFound: "Product {product} not found",
		msgSearchEmpty:     "No products matching {product}",
		msgSearchFound:     "Found {count} products matching {product}",
		msgStockSummary:    "{count} products in stock, {low} running low",
		msgIncomplete:      "To {task}, please specify the {missing}. Try: '{example}'",
		msgUnknown:         "Sorry, I did not understand. Try commands like 'add 5 kg tomato at ₹50' or 'list all products'",
		msgDuplicate:       "This request was already processed",
	},
	"hi": {
		msgProductAdded:    "{product} {quantity} किलो ₹{price} दर से जोड़ा गया",
		msgPriceUpdated:    "{product} की कीमत ₹{price} अपडेट की गई",
		msgQuantityRemoved: "{product} से {quantity} किलो हटाया गया",
		msgProductDeleted:  "{product} डिलीट किया गया",
		msgLowStock:        "कम स्टॉक अलर्ट",
		msgProductsListed:  "आपके पास {count} उत्पाद हैं",
	},
	"kn": {
		msgProductAdded:    "{product} {quantity} ಕಿಲೋ ₹{price} ದರದಲ್ಲಿ ಸೇರಿಸಲಾಗಿದೆ",
		msgPriceUpdated:    "{product} ಬೆಲೆ ₹{price} ಅಪ್ಡೇಟ್ ಮಾಡಲಾಗಿದೆ",
		msgQuantityRemoved: "{product} ನಿಂದ {quantity} ಕಿಲೋ ತೆಗೆದುಹಾಕಲಾಗಿದೆ",
		msgProductDeleted:  "{product} ಅಳಿಸಲಾಗಿದೆ",
		msgLowStock:        "ಕಡಿಮೆ ಸ್ಟಾಕ್ ಎಚ್ಚರಿಕೆ",
		msgProductsListed:  "ನಿಮ್ಮ ಬಳಿ {count} ಉತ್ಪಾದನೆಗಳಿವೆ",
	},
	"ta": {
		msgProductAdded:    "{product} {quantity} கிலோ ₹{price} விலையில் சேர்க்கப்பட்டது",
		msgPriceUpdated:    "{product} விலை ₹{price} அப்டேட் செய்யப்பட்டது",
		msgQuantityRemoved: "{product} இல் இருந்து {quantity} கிலோ எடுக்கப்பட்டது",
		msgProductDeleted:  "{product} நீக்கப்பட்டது",
		msgLowStock:        "குறைந்த பங்கு எச்சரிக்கை",
		msgProductsListed:  "உங்களிடம் {count} பொருட்கள் உள்ளன",
	},
	"te": {
		msgProductAdded:    "{product} {quantity} కిలో ₹{price} రేటుతో చేర్చబడింది",
		msgPriceUpdated:    "{product} ధర ₹{price} అప్డేట్ చేయబడింది",
		msgQuantityRemoved: "{product} నుండి {quantity} కిలో తీసివేయబడింది",
		msgProductDeleted:  "{product} తొలగించబడింది",
		msgLowStock:        "తక్కువ స్టాక్ హెచ్చరిక",
		msgProductsListed:  "మీకు {count} ఉత్పత్తులు ఉన్నాయి",
	},
}

// message renders the template for key in language. args alternate
// placeholder name and value.
func message(language, key string, args ...string) string {
	tmpl, ok := messages[language][key]
	if !ok {
		tmpl = messages["en"][key]
	}
	if len(args) == 0 {
		return tmpl
	}

	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+args[i]+"}", args[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var actionVerbs = map[string]string{
	"add":          "add",
	"update_price": "update the price of",
	"remove":       "remove",
	"delete":       "delete",
	"search":       "search for",
}

func incompleteMessage(action, product string, missing []string) string {
	task := actionVerbs[action]
	if task == "" {
		task = action
	}
	if product != "" {
		task += " " + product
	}
	return message("en", msgIncomplete,
		"task", task,
		"missing", strings.Join(missing, " and "),
		"example", exampleCommand(action, product),
	)
}

// exampleCommand shows a complete command for the action the user attempted.
func exampleCommand(action, product string) string {
	if product == "" {
		product = "tomato"
	}
	switch action {
	case "update_price":
		return "update " + product + " price to ₹40"
	case "remove":
		return "remove 2 kg " + product
	case "delete", "search":
		return action + " " + product
	default:
		return "Add " + product + " 2 kg at ₹20 per kg"
	}
}
