package middlewares

var Responses = struct {
	FailedValidations   *NewRM
	InternalServerError *NewRM
	UserNotFound        *NewRM
	InvalidRoles        *NewRM
	ShipmentNotFound    *NewRM
	VehicleNotFound     *NewRM
	OfferNotFound       *NewRM
	PaymentNotFound     *NewRM
	InvalidAmount       *NewRM
	ShipmentNotOpen     *NewRM
}{
	FailedValidations: &NewRM{
		Language.English: "Failed field validations",
		Language.Spanish: "Las validaciones de los campos fallaron",
	},
	InternalServerError: &NewRM{
		Language.English: "Internal server error",
		Language.Spanish: "Problemas con el servidor",
	},
	UserNotFound: &NewRM{
		Language.English: "User not found",
		Language.Spanish: "No se encontró el usuario",
	},
	InvalidRoles: &NewRM{
		Language.English: "Invalid roles",
		Language.Spanish: "No tienes permiso para realizar esta acción",
	},
	ShipmentNotFound: &NewRM{
		Language.English: "Shipment not found",
		Language.Spanish: "No se encontró el embarque",
	},
	VehicleNotFound: &NewRM{
		Language.English: "Vehicle not found",
		Language.Spanish: "No se encontró el vehículo",
	},
	OfferNotFound: &NewRM{
		Language.English: "Offer not found",
		Language.Spanish: "No se encontró la oferta",
	},
	PaymentNotFound: &NewRM{
		Language.English: "Payment not found",
		Language.Spanish: "No se encontró el pago",
	},
	InvalidAmount: &NewRM{
		Language.English: "Amount must be a positive number",
		Language.Spanish: "El monto debe ser un número positivo",
	},
	ShipmentNotOpen: &NewRM{
		Language.English: "Shipment is not open",
		Language.Spanish: "El embarque no está abierto",
	},
}

type NewRM map[string]string

var Language = struct {
	English string
	Spanish string
}{
	English: "en",
	Spanish: "es",
}
