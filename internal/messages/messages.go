// Package messages holds the notification text catalog. Texts are keyed
// by the tenant's language; unknown languages fall back to English.
package messages

import (
	"fmt"
	"strings"
)

const (
	LangEnglish = "en"
	LangSpanish = "es_us"
)

func normalize(lang string) string {
	if lang == LangSpanish {
		return LangSpanish
	}
	return LangEnglish
}

// InitialAlert announces a brand-new incident to the responders.
func InitialAlert(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("Hay una solicitud de ayuda de %s. Responda \"Ok\" cuando haya atendido la llamada.", deviceName)
	}
	return fmt.Sprintf("There has been a request for help from %s. Please respond \"Ok\" when you have followed up on the call.", deviceName)
}

// UrgentAlert carries the running press count on an escalation.
func UrgentAlert(lang string, numPresses int) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("Esta es una solicitud urgente. El botón se ha presionado %d veces. Responda \"Ok\" cuando haya atendido la llamada.", numPresses)
	}
	return fmt.Sprintf("This is an urgent request. The button has been pressed %d times. Please respond \"Ok\" when you have followed up on the call.", numPresses)
}

// AlertReminder nags an unresponded session.
func AlertReminder(lang string) string {
	if normalize(lang) == LangSpanish {
		return "Responda \"Ok\" si ha atendido la llamada. Si no responde en 2 minutos se emitirá una alerta de emergencia al personal."
	}
	return "Please respond \"Ok\" if you have followed up on your call. If you do not respond within 2 minutes an emergency alert will be issued to staff."
}

// AlertFallback escalates an unresponded session to the fallback numbers.
func AlertFallback(lang, tenantName, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("Hay una solicitud sin respuesta en %s, %s", tenantName, deviceName)
	}
	return fmt.Sprintf("There has been an unresponded request at %s, %s", tenantName, deviceName)
}

// ButtonDisconnection is the standalone per-button disconnection notice.
func ButtonDisconnection(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("Se perdió la conexión del botón %s. Verifique que el botón esté dentro del alcance de su gateway.", deviceName)
	}
	return fmt.Sprintf("The connection for button %s has been lost. Please make sure the button is within range of its gateway.", deviceName)
}

// ButtonDisconnectionReminder repeats an unresolved button disconnection.
func ButtonDisconnectionReminder(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("El botón %s sigue desconectado.", deviceName)
	}
	return fmt.Sprintf("Button %s is still disconnected.", deviceName)
}

// ButtonReconnection clears a button disconnection.
func ButtonReconnection(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("El botón %s se ha reconectado.", deviceName)
	}
	return fmt.Sprintf("Button %s has reconnected.", deviceName)
}

// GatewayDisconnection is the per-gateway disconnection notice.
func GatewayDisconnection(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("Se perdió la conexión del gateway %s. Desenchúfelo y vuelva a enchufarlo para reiniciarlo.", deviceName)
	}
	return fmt.Sprintf("The connection for gateway %s has been lost. Please unplug it and plug it back in to reset it.", deviceName)
}

// GatewayDisconnectionReminder repeats an unresolved gateway disconnection.
func GatewayDisconnectionReminder(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("El gateway %s sigue desconectado.", deviceName)
	}
	return fmt.Sprintf("Gateway %s is still disconnected.", deviceName)
}

// GatewayReconnection clears a gateway disconnection.
func GatewayReconnection(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("El gateway %s se ha reconectado.", deviceName)
	}
	return fmt.Sprintf("Gateway %s has reconnected.", deviceName)
}

// LowBatteryInitial raises the low-battery alert.
func LowBatteryInitial(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("La batería del botón %s está baja. Reemplácela pronto.", deviceName)
	}
	return fmt.Sprintf("The battery for button %s is low. Please replace it soon.", deviceName)
}

// LowBatteryReminder repeats an unresolved low battery.
func LowBatteryReminder(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("La batería del botón %s sigue baja.", deviceName)
	}
	return fmt.Sprintf("The battery for button %s is still low.", deviceName)
}

// LowBatteryRecovered clears the low-battery alert.
func LowBatteryRecovered(lang, deviceName string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("La batería del botón %s ya no está baja.", deviceName)
	}
	return fmt.Sprintf("The battery for button %s is no longer low.", deviceName)
}

// HubDisconnection raises the tenant-facing hub outage alert.
func HubDisconnection(lang, locationDescription string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("Se perdió la conexión del hub de botones en %s. Desenchúfelo y vuelva a enchufarlo para reiniciarlo.", locationDescription)
	}
	return fmt.Sprintf("The connection for the %s button hub has been lost. Please unplug the hub and plug it back in to reset it.", locationDescription)
}

// HubDisconnectionReminder repeats an unresolved hub outage.
func HubDisconnectionReminder(lang, locationDescription string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("El hub de botones en %s sigue desconectado.", locationDescription)
	}
	return fmt.Sprintf("The %s button hub is still disconnected.", locationDescription)
}

// HubReconnection clears a hub outage.
func HubReconnection(lang, locationDescription string) string {
	if normalize(lang) == LangSpanish {
		return fmt.Sprintf("El hub de botones en %s se ha reconectado.", locationDescription)
	}
	return fmt.Sprintf("The %s button hub has reconnected.", locationDescription)
}

// TenantStatusSummary lists a sweep's connection changes for one tenant.
// Both lists are expected to be pre-sorted.
func TenantStatusSummary(lang, tenantName string, disconnected, reconnected []string) string {
	if normalize(lang) == LangSpanish {
		msg := fmt.Sprintf("Hubo cambios de conexión en los botones de %s.", tenantName)
		if len(disconnected) > 0 {
			msg += fmt.Sprintf(" Los siguientes botones se han desconectado: %s.", strings.Join(disconnected, ", "))
		}
		if len(reconnected) > 0 {
			msg += fmt.Sprintf(" Los siguientes botones se han reconectado: %s.", strings.Join(reconnected, ", "))
		}
		return msg
	}

	msg := fmt.Sprintf("There were connection changes for the buttons at %s.", tenantName)
	if len(disconnected) > 0 {
		msg += fmt.Sprintf(" The following buttons have disconnected: %s.", strings.Join(disconnected, ", "))
	}
	if len(reconnected) > 0 {
		msg += fmt.Sprintf(" The following buttons have reconnected: %s.", strings.Join(reconnected, ", "))
	}
	return msg
}
