package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/aquasafe179-rgb/rapidcareBeta/databases"
	"github.com/aquasafe179-rgb/rapidcareBeta/models"
	"github.com/aquasafe179-rgb/rapidcareBeta/notifier"
)

// Default strings attached when a caller omits the optional text of a transition
const (
	DefaultTransferReason = "Transferred to more suitable facility"
	DefaultHandledComment = "Case completed by ambulance team"
)

// transitions is the legal status graph. Rejected, Transferred, Handled and
// Discharged are terminal; a rejected or transferred request is resubmitted
// as a new record, never resurrected.
var transitions = map[string][]string{
	models.StatusPending:  {models.StatusAccepted, models.StatusRejected, models.StatusTransferred},
	models.StatusAccepted: {models.StatusAdmitted, models.StatusHandled},
	models.StatusAdmitted: {models.StatusDischarged},
}

var allStatuses = []string{
	models.StatusPending, models.StatusAccepted, models.StatusRejected,
	models.StatusDenied, models.StatusTransferred, models.StatusHandled,
	models.StatusAdmitted, models.StatusDischarged,
}

func canTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Engine drives every emergency request mutation. Each transition loads the
// record, authorizes the actor, validates the payload, commits through the
// store's version-guarded update, and emits its events exactly once before
// returning.
type Engine struct {
	Emergencies databases.EmergencyDatabase
	Ambulances  databases.AmbulanceDatabase
	Allocator   *Allocator
	Notifier    notifier.Publisher
}

// NewEngine wires the lifecycle engine
func NewEngine(em databases.EmergencyDatabase, am databases.AmbulanceDatabase, alloc *Allocator, n notifier.Publisher) *Engine {
	return &Engine{Emergencies: em, Ambulances: am, Allocator: alloc, Notifier: n}
}

func now() primitive.DateTime {
	return primitive.NewDateTimeFromTime(time.Now())
}

func (e *Engine) get(ctx context.Context, id string) (*models.Emergency, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, NewValidationError("invalid emergency id %s", id)
	}
	em, err := e.Emergencies.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFoundError("emergency request not found")
		}
		return nil, err
	}
	return em, nil
}

// commit runs the version-guarded update and maps a miss onto ConflictError
func (e *Engine) commit(ctx context.Context, em *models.Emergency, from []string, set bson.M) (*models.Emergency, error) {
	set["emergency.updatedAt"] = now()
	updated, err := e.Emergencies.ConditionalUpdate(ctx, em.ID, from, em.Version, set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewConflictError("emergency request was modified concurrently, reload and retry")
		}
		return nil, err
	}
	return updated, nil
}

func (e *Engine) requireOwnerHospital(actor models.Identity, em *models.Emergency) error {
	if actor.Role != models.RoleHospital || actor.Ref != em.Details.HospitalID {
		return NewForbiddenError("hospital %s does not own this emergency request", actor.Ref)
	}
	return nil
}

func (e *Engine) requireOwnerAmbulance(actor models.Identity, em *models.Emergency) error {
	if actor.Role != models.RoleAmbulance || actor.Ref != em.Details.AmbulanceID {
		return NewForbiddenError("ambulance %s does not own this emergency request", actor.Ref)
	}
	return nil
}

// Create validates and persists a new Pending request. For ambulance-submitted
// requests the actor's crew details are attached and the ambulance goes
// In Transit.
func (e *Engine) Create(ctx context.Context, submitter string, actor *models.Identity, req CreateRequest) (*models.Emergency, error) {
	var missing []string
	if strings.TrimSpace(req.Patient.Name) == "" {
		missing = append(missing, "patient.name")
	}
	if strings.TrimSpace(req.Patient.ContactMobile) == "" {
		missing = append(missing, "patient.contactMobile")
	}
	if strings.TrimSpace(req.HospitalID) == "" {
		missing = append(missing, "hospitalId")
	}
	if len(missing) > 0 {
		return nil, NewValidationError("missing required fields: %s", strings.Join(missing, ", "))
	}

	ts := now()
	details := models.EmergencyDetails{
		Patient:            req.Patient,
		HospitalID:         strings.TrimSpace(req.HospitalID),
		Status:             models.StatusPending,
		SubmittedBy:        submitter,
		TransportMode:      req.TransportMode,
		Remarks:            req.Remarks,
		AlternateHospitals: []string{},
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}

	if submitter == models.SubmitterAmbulance && actor != nil && actor.Role == models.RoleAmbulance {
		details.AmbulanceID = actor.Ref
		amb, err := e.Ambulances.FindOne(ctx, bson.M{"ambulance.ambulanceId": actor.Ref})
		if err == nil {
			details.EmtName = amb.Details.Emt.Name
			details.EmtID = amb.Details.Emt.MemberID
			details.EmtMobile = amb.Details.Emt.Mobile
			details.PilotName = amb.Details.Pilot.Name
			details.PilotID = amb.Details.Pilot.MemberID
			details.PilotMobile = amb.Details.Pilot.Mobile
		} else {
			zap.S().Warnw("could not attach crew details", "ambulanceId", actor.Ref, "error", err)
		}
	}
	// a hospital terminal may only file requests against itself
	if actor != nil && actor.Role == models.RoleHospital && actor.Ref != details.HospitalID {
		return nil, NewForbiddenError("cannot submit emergency requests for other hospitals")
	}

	oid := primitive.NewObjectID()
	doc := bson.M{
		"_id":       oid,
		"emergency": details,
		"__v":       int32(0),
	}
	if _, err := e.Emergencies.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	em := &models.Emergency{ID: oid.Hex(), Details: details, Version: 0}

	if submitter == models.SubmitterPublic {
		e.Notifier.Publish(notifier.HospitalRoom(em.Details.HospitalID), notifier.EventEmergencyNewPublic, em)
	} else {
		e.Notifier.Publish(notifier.HospitalRoom(em.Details.HospitalID), notifier.EventEmergencyNewAmbulance, em)
		e.setAmbulanceStatus(ctx, em.Details.AmbulanceID, em.Details.HospitalID, models.AmbulanceInTransit)
	}
	return em, nil
}

// Accept moves Pending -> Accepted; the accepting hospital becomes the owner
func (e *Engine) Accept(ctx context.Context, id string, actor models.Identity, req AcceptRequest) (*models.Emergency, error) {
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if em.Details.HospitalID != "" && em.Details.HospitalID != actor.Ref {
		return nil, NewForbiddenError("hospital %s does not own this emergency request", actor.Ref)
	}
	if em.Details.Status != models.StatusPending {
		return nil, NewConflictError("cannot accept a %s emergency request", em.Details.Status)
	}

	set := bson.M{
		"emergency.status":          models.StatusAccepted,
		"emergency.remarks":         req.Remarks,
		"emergency.assisted":        req.Assisted,
		"emergency.assistedComment": req.AssistedComment,
		"emergency.handledBy":       actor.Ref,
		"emergency.hospitalId":      actor.Ref,
		"emergency.responseTime":    now(),
	}
	updated, err := e.commit(ctx, em, []string{models.StatusPending}, set)
	if err != nil {
		return nil, err
	}

	e.Notifier.Publish(notifier.HospitalRoom(updated.Details.HospitalID), notifier.EventEmergencyUpdate, updated)
	e.notifySubmitter(updated, map[string]interface{}{
		"requestId": updated.ID,
		"status":    models.StatusAccepted,
		"hospital":  actor.Ref,
		"message":   "Your emergency request has been accepted by the hospital.",
		"remarks":   req.Remarks,
	})
	return updated, nil
}

// Reject moves Pending -> Rejected; a non-empty reason is mandatory
func (e *Engine) Reject(ctx context.Context, id string, actor models.Identity, req RejectRequest) (*models.Emergency, error) {
	reason := strings.TrimSpace(req.RejectionReason)
	if reason == "" {
		return nil, NewValidationError("rejection reason is required when denying an emergency request")
	}
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerHospital(actor, em); err != nil {
		return nil, err
	}
	if em.Details.Status != models.StatusPending {
		return nil, NewConflictError("cannot reject a %s emergency request", em.Details.Status)
	}

	alternates := req.AlternateHospitals
	if alternates == nil {
		alternates = []string{}
	}
	set := bson.M{
		"emergency.status":             models.StatusRejected,
		"emergency.rejectionReason":    reason,
		"emergency.alternateHospitals": alternates,
		"emergency.handledBy":          actor.Ref,
		"emergency.responseTime":       now(),
	}
	updated, err := e.commit(ctx, em, []string{models.StatusPending}, set)
	if err != nil {
		return nil, err
	}

	e.Notifier.Publish(notifier.HospitalRoom(updated.Details.HospitalID), notifier.EventEmergencyUpdate, updated)
	e.notifySubmitter(updated, map[string]interface{}{
		"requestId":          updated.ID,
		"status":             models.StatusRejected,
		"hospital":           actor.Ref,
		"message":            "Your emergency request has been denied by the hospital.",
		"reason":             reason,
		"alternateHospitals": alternates,
	})
	return updated, nil
}

// Transfer moves Pending -> Transferred; the target hospital is mandatory
func (e *Engine) Transfer(ctx context.Context, id string, actor models.Identity, req TransferRequest) (*models.Emergency, error) {
	target := strings.TrimSpace(req.SelectedHospital)
	if target == "" {
		return nil, NewValidationError("selected hospital is required when transferring an emergency request")
	}
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerHospital(actor, em); err != nil {
		return nil, err
	}
	if em.Details.Status != models.StatusPending {
		return nil, NewConflictError("cannot transfer a %s emergency request", em.Details.Status)
	}

	reason := req.TransferReason
	if reason == "" {
		reason = DefaultTransferReason
	}
	alternates := req.AlternateHospitals
	if len(alternates) == 0 {
		alternates = []string{target}
	}
	set := bson.M{
		"emergency.status":             models.StatusTransferred,
		"emergency.selectedHospital":   target,
		"emergency.alternateHospitals": alternates,
		"emergency.transferReason":     reason,
		"emergency.handledBy":          actor.Ref,
		"emergency.responseTime":       now(),
	}
	updated, err := e.commit(ctx, em, []string{models.StatusPending}, set)
	if err != nil {
		return nil, err
	}

	e.Notifier.Publish(notifier.HospitalRoom(updated.Details.HospitalID), notifier.EventEmergencyUpdate, updated)
	e.notifySubmitter(updated, map[string]interface{}{
		"requestId":          updated.ID,
		"status":             models.StatusTransferred,
		"hospital":           actor.Ref,
		"message":            "Your emergency request has been transferred to another hospital.",
		"transferTo":         target,
		"reason":             reason,
		"alternateHospitals": alternates,
	})
	return updated, nil
}

// MarkHandled is the ambulance closing out its own run: Accepted -> Handled
func (e *Engine) MarkHandled(ctx context.Context, id string, actor models.Identity, req HandledRequest) (*models.Emergency, error) {
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerAmbulance(actor, em); err != nil {
		return nil, err
	}
	if em.Details.Status != models.StatusAccepted {
		return nil, NewConflictError("cannot mark a %s emergency request as handled", em.Details.Status)
	}

	comment := req.HandledComment
	if comment == "" {
		comment = DefaultHandledComment
	}
	handledAt := now()
	set := bson.M{
		"emergency.status":         models.StatusHandled,
		"emergency.handled":        true,
		"emergency.handledAt":      handledAt,
		"emergency.handledBy":      actor.Ref,
		"emergency.handledComment": comment,
	}
	updated, err := e.commit(ctx, em, []string{models.StatusAccepted}, set)
	if err != nil {
		return nil, err
	}

	e.Notifier.Publish(notifier.HospitalRoom(updated.Details.HospitalID), notifier.EventEmergencyHandled, map[string]interface{}{
		"requestId":   updated.ID,
		"ambulanceId": updated.Details.AmbulanceID,
		"handledAt":   handledAt,
		"comment":     comment,
	})
	e.setAmbulanceStatus(ctx, actor.Ref, updated.Details.HospitalID, models.AmbulanceOnDuty)
	return updated, nil
}

// Admit books a bed and moves Accepted -> Admitted. The bed is reserved
// before the record commits; a failed commit releases the reservation so
// neither side is left half-admitted.
func (e *Engine) Admit(ctx context.Context, id string, actor models.Identity, req AdmitRequest) (*models.Emergency, *models.Bed, error) {
	if strings.TrimSpace(req.BedID) == "" {
		return nil, nil, NewValidationError("bed id is required")
	}
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := e.requireOwnerHospital(actor, em); err != nil {
		return nil, nil, err
	}
	if em.Details.Status != models.StatusAccepted {
		return nil, nil, NewConflictError("cannot admit a %s emergency request", em.Details.Status)
	}

	bed, err := e.Allocator.Occupy(ctx, actor.Ref, req.BedID)
	if err != nil {
		return nil, nil, err
	}

	set := bson.M{
		"emergency.status": models.StatusAdmitted,
		"emergency.bedId":  req.BedID,
	}
	updated, err := e.commit(ctx, em, []string{models.StatusAccepted}, set)
	if err != nil {
		// compensate: the record did not commit, free the bed again
		if _, rerr := e.Allocator.Release(ctx, actor.Ref, req.BedID); rerr != nil {
			zap.S().Errorw("failed to release bed after admit conflict", "bedId", req.BedID, "error", rerr)
		}
		return nil, nil, err
	}

	room := notifier.HospitalRoom(updated.Details.HospitalID)
	e.Notifier.Publish(room, notifier.EventEmergencyUpdate, updated)
	e.Notifier.Publish(room, notifier.EventBedUpdate, bed)
	e.Notifier.Broadcast(notifier.EventBedPublicUpdate, map[string]interface{}{
		"bedId":      bed.Details.BedID,
		"hospitalId": bed.Details.HospitalID,
		"status":     bed.Details.Status,
	})
	if updated.Details.AmbulanceID != "" {
		e.Notifier.Publish(notifier.AmbulanceRoom(updated.Details.AmbulanceID), notifier.EventEmergencyUpdate, updated)
	}
	return updated, bed, nil
}

// Discharge moves Admitted -> Discharged, clears the bed reference and
// returns the bed to Vacant
func (e *Engine) Discharge(ctx context.Context, id string, actor models.Identity) (*models.Emergency, *models.Bed, error) {
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := e.requireOwnerHospital(actor, em); err != nil {
		return nil, nil, err
	}
	if em.Details.Status != models.StatusAdmitted {
		return nil, nil, NewConflictError("cannot discharge a %s emergency request", em.Details.Status)
	}

	bedID := em.Details.BedID
	set := bson.M{
		"emergency.status": models.StatusDischarged,
		"emergency.bedId":  "",
	}
	updated, err := e.commit(ctx, em, []string{models.StatusAdmitted}, set)
	if err != nil {
		return nil, nil, err
	}

	bed, err := e.Allocator.Release(ctx, actor.Ref, bedID)
	if err != nil {
		zap.S().Errorw("failed to release bed on discharge", "bedId", bedID, "error", err)
	}

	room := notifier.HospitalRoom(updated.Details.HospitalID)
	e.Notifier.Publish(room, notifier.EventEmergencyUpdate, updated)
	if bed != nil {
		e.Notifier.Publish(room, notifier.EventBedUpdate, bed)
		e.Notifier.Broadcast(notifier.EventBedPublicUpdate, map[string]interface{}{
			"bedId":      bed.Details.BedID,
			"hospitalId": bed.Details.HospitalID,
			"status":     bed.Details.Status,
		})
	}
	return updated, bed, nil
}

// Reply attaches the hospital's free-text reply while moving the request to
// the caller-supplied target status. Legal only while the request is Pending
// or Accepted; admission must go through Admit and run closure through
// MarkHandled, never through a reply.
func (e *Engine) Reply(ctx context.Context, id string, actor models.Identity, req ReplyRequest) (*models.Emergency, error) {
	if req.Status == "" || req.Message == "" {
		return nil, NewValidationError("status and message are required")
	}
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerHospital(actor, em); err != nil {
		return nil, err
	}
	cur := em.Details.Status
	if cur != models.StatusPending && cur != models.StatusAccepted {
		return nil, NewConflictError("cannot reply to a %s emergency request", cur)
	}
	if req.Status == models.StatusAdmitted {
		return nil, NewValidationError("admission requires a bed and must use the admit operation")
	}
	if req.Status == models.StatusHandled {
		return nil, NewValidationError("closing a run stamps the ambulance and must use the handled operation")
	}
	if req.Status != cur && !canTransition(cur, req.Status) {
		return nil, NewValidationError("illegal target status %q from %s", req.Status, cur)
	}

	repliedBy := req.RepliedBy
	if repliedBy == "" {
		repliedBy = actor.Ref
	}
	set := bson.M{
		"emergency.status":       req.Status,
		"emergency.replyMessage": req.Message,
		"emergency.replyReason":  req.Reason,
		"emergency.repliedBy":    repliedBy,
		"emergency.repliedAt":    now(),
	}
	updated, err := e.commit(ctx, em, []string{models.StatusPending, models.StatusAccepted}, set)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"emergencyId": updated.ID,
		"status":      req.Status,
		"message":     req.Message,
		"reason":      req.Reason,
	}
	if updated.Details.SubmittedBy == models.SubmitterPublic {
		e.Notifier.Broadcast(notifier.EventEmergencyReplyPublic, payload)
	} else if updated.Details.AmbulanceID != "" {
		e.Notifier.Publish(notifier.AmbulanceRoom(updated.Details.AmbulanceID), notifier.EventEmergencyReplyAmbulance, payload)
	}
	return updated, nil
}

// UpdateStatus is the generic dashboard move along the transition graph
func (e *Engine) UpdateStatus(ctx context.Context, id string, actor models.Identity, req StatusRequest) (*models.Emergency, error) {
	if req.Status == "" {
		return nil, NewValidationError("status is required")
	}
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerHospital(actor, em); err != nil {
		return nil, err
	}
	if req.Status == models.StatusAdmitted {
		return nil, NewValidationError("admission requires a bed and must use the admit operation")
	}
	if req.Status == models.StatusHandled {
		return nil, NewValidationError("closing a run stamps the ambulance and must use the handled operation")
	}
	if !canTransition(em.Details.Status, req.Status) {
		return nil, NewConflictError("illegal transition %s -> %s", em.Details.Status, req.Status)
	}

	set := bson.M{
		"emergency.status":    req.Status,
		"emergency.handledBy": actor.Ref,
	}
	if req.Reason != "" {
		set["emergency.reason"] = req.Reason
	}
	if req.Remarks != "" {
		set["emergency.remarks"] = req.Remarks
	}
	if req.SelectedHospital != "" {
		set["emergency.selectedHospital"] = req.SelectedHospital
	}
	if req.AlternateHospitals != nil {
		set["emergency.alternateHospitals"] = req.AlternateHospitals
	}
	updated, err := e.commit(ctx, em, []string{em.Details.Status}, set)
	if err != nil {
		return nil, err
	}

	e.Notifier.Publish(notifier.HospitalRoom(updated.Details.HospitalID), notifier.EventEmergencyUpdate, updated)
	return updated, nil
}

// SetPrepInfo is the ambulance-only side channel for en-route vitals; the
// status never changes
func (e *Engine) SetPrepInfo(ctx context.Context, id string, actor models.Identity, info models.PrepInfo) (*models.Emergency, error) {
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerAmbulance(actor, em); err != nil {
		return nil, err
	}

	set := bson.M{"emergency.prepInfo": info}
	updated, err := e.commit(ctx, em, allStatuses, set)
	if err != nil {
		return nil, err
	}

	if updated.Details.HospitalID != "" {
		e.Notifier.Publish(notifier.HospitalRoom(updated.Details.HospitalID), notifier.EventEmergencyUpdate, map[string]interface{}{
			"emergencyId": updated.ID,
			"hospitalId":  updated.Details.HospitalID,
			"status":      updated.Details.Status,
			"prepInfo":    updated.Details.PrepInfo,
		})
	}
	return updated, nil
}

// SetReadyToServe is the hospital-only side channel telling the ambulance the
// receiving team is ready; the status never changes
func (e *Engine) SetReadyToServe(ctx context.Context, id string, actor models.Identity) (*models.Emergency, error) {
	em, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerHospital(actor, em); err != nil {
		return nil, err
	}

	set := bson.M{"emergency.isReadyToServe": true}
	updated, err := e.commit(ctx, em, allStatuses, set)
	if err != nil {
		return nil, err
	}

	if updated.Details.AmbulanceID != "" {
		e.Notifier.Publish(notifier.AmbulanceRoom(updated.Details.AmbulanceID), notifier.EventEmergencyUpdate, map[string]interface{}{
			"emergencyId":    updated.ID,
			"status":         updated.Details.Status,
			"isReadyToServe": true,
		})
	}
	return updated, nil
}

// notifySubmitter routes a disposition response back to whoever filed the
// request: the ambulance's room, or the public broadcast channel the portal
// tracking pages listen on
func (e *Engine) notifySubmitter(em *models.Emergency, payload map[string]interface{}) {
	if em.Details.AmbulanceID != "" {
		e.Notifier.Publish(notifier.AmbulanceRoom(em.Details.AmbulanceID), notifier.EventEmergencyResponse, payload)
	}
	if em.Details.SubmittedBy == models.SubmitterPublic {
		e.Notifier.Broadcast(notifier.EventEmergencyReplyPublic, payload)
	}
}

// setAmbulanceStatus records the submission/handling side effect on the
// ambulance roster and tells the hospital dashboard
func (e *Engine) setAmbulanceStatus(ctx context.Context, ambulanceID, hospitalID, status string) {
	if ambulanceID == "" {
		return
	}
	_, err := e.Ambulances.UpdateOne(ctx,
		bson.M{"ambulance.ambulanceId": ambulanceID},
		bson.M{"$set": bson.M{"ambulance.status": status, "ambulance.updatedAt": now()}},
	)
	if err != nil {
		zap.S().Warnw("failed to update ambulance status", "ambulanceId", ambulanceID, "status", status, "error", err)
		return
	}
	if hospitalID != "" {
		e.Notifier.Publish(notifier.HospitalRoom(hospitalID), notifier.EventAmbulanceStatusUpdate, map[string]interface{}{
			"ambulanceId": ambulanceID,
			"status":      status,
		})
	}
}
