package directapi

// coords is a latitude/longitude pair for location cookies and headers.
type coords struct {
	Lat float64
	Lng float64
}

// pincodeTable maps the pincodes we serve to city-center coordinates.
// Hyperlocal sources only need a point inside a serviceable zone, not
// the exact address.
var pincodeTable = map[string]coords{
	"110001": {28.6329, 77.2195}, // New Delhi
	"122001": {28.4595, 77.0266}, // Gurugram
	"201301": {28.5355, 77.3910}, // Noida
	"400001": {18.9387, 72.8353}, // Mumbai
	"400053": {19.1197, 72.8464}, // Andheri
	"411001": {18.5204, 73.8567}, // Pune
	"500001": {17.3850, 78.4867}, // Hyderabad
	"560001": {12.9716, 77.5946}, // Bengaluru
	"560034": {12.9352, 77.6245}, // Koramangala
	"600001": {13.0827, 80.2707}, // Chennai
	"700001": {22.5726, 88.3639}, // Kolkata
	"380001": {23.0225, 72.5714}, // Ahmedabad
}

var defaultCoords = pincodeTable["560001"]

// locate resolves a pincode to coordinates, falling back to the
// default city when the pincode is unknown.
func locate(pincode string) coords {
	if c, ok := pincodeTable[pincode]; ok {
		return c
	}
	return defaultCoords
}
