package modal

// User facing texts of the appointment form.
const (
	TitleCreate = "Nuovo Appuntamento"
	TitleEdit   = "Modifica Appuntamento"

	DeletePrompt = "Sei sicuro di voler eliminare questo appuntamento?"

	MsgClientRequired   = "Seleziona un cliente"
	MsgServiceRequired  = "Seleziona un servizio"
	MsgWorkerRequired   = "Seleziona un operatore"
	MsgPositionRequired = "Seleziona una postazione"
	MsgStartRequired    = "Seleziona un orario di inizio"
	MsgEndRequired      = "Seleziona un orario di fine"
	MsgEndBeforeStart   = "L'orario di fine deve essere successivo all'orario di inizio"
	MsgInvalidPrice     = "Inserisci un prezzo valido"
)
