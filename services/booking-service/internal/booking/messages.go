package booking

import (
	"fmt"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

const whenLayout = "Mon, 02 Jan 2006 15:04 MST"

func bookedMessage(biz model.Business, svc model.Service, a model.Appointment) string {
	return fmt.Sprintf("Your %s appointment at %s on %s is pending confirmation. Confirmation code: %s.",
		svc.Name, biz.Name, a.StartTime.In(biz.Location()).Format(whenLayout), a.ConfirmationCode)
}

func transitionMessage(biz model.Business, a model.Appointment) string {
	when := a.StartTime.In(biz.Location()).Format(whenLayout)
	switch a.Status {
	case model.StatusConfirmed:
		return fmt.Sprintf("%s confirmed your appointment on %s (code %s).", biz.Name, when, a.ConfirmationCode)
	case model.StatusCancelled:
		return fmt.Sprintf("Your appointment at %s on %s was cancelled: %s", biz.Name, when, a.CancellationReason)
	case model.StatusCompleted:
		return fmt.Sprintf("Thanks for visiting %s. Tell us how it went by leaving feedback for appointment %s.", biz.Name, a.ConfirmationCode)
	}
	return rescheduledMessage(biz, a)
}

func rescheduledMessage(biz model.Business, a model.Appointment) string {
	return fmt.Sprintf("Your appointment at %s is now on %s (code %s).",
		biz.Name, a.StartTime.In(biz.Location()).Format(whenLayout), a.ConfirmationCode)
}
