package history

// Styles maps semantic element names to their Tailwind class strings.
var Styles = map[string]string{
	"container":         "w-4/5 mx-auto my-6 p-4 bg-gray-50 rounded-lg shadow-md flex-grow",
	"title":             "text-2xl font-bold text-center mb-4",
	"table":             "min-w-full bg-white border border-gray-300",
	"thead":             "bg-primary text-white",
	"th":                "py-2 px-4 border-b text-center w-1/4",
	"tbody":             "",
	"trGreen":           "hover:bg-green-100 bg-green-50",
	"trRed":             "hover:bg-red-100 bg-red-50",
	"td":                "py-2 px-4 border-b text-center w-1/4",
	"button":            "bg-secondary hover:bg-secondary_hover text-white px-4 py-1 rounded",
	"modalOverlay":      "fixed inset-0 bg-black bg-opacity-50 flex items-center justify-center",
	"modalContent":      "bg-white p-6 rounded shadow-md w-4/5 max-w-screen-lg",
	"modalTitle":        "text-xl font-bold text-center mb-4",
	"modalSection":      "mb-4",
	"modalSectionTitle": "font-semibold text-lg mt-4 mb-2",
	"modalList":         "list-none pl-0",
	"modalListItem":     "flex items-center mb-2",
	"closeButton":       "bg-secondary hover:bg-secondary_hover text-white px-4 py-1 rounded mt-4",
}

// Style returns the class string for name, or "" if unknown.
func Style(name string) string {
	return Styles[name]
}

// RowStyle picks the low-risk or high-risk row style.
func RowStyle(class float64) string {
	if class == 0 {
		return Styles["trGreen"]
	}
	return Styles["trRed"]
}
