package web

import (
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/naosocial/go-naochat/internal/log"
	"github.com/naosocial/go-naochat/pkg/chat"
	"github.com/naosocial/go-naochat/pkg/contract"
	"github.com/naosocial/go-naochat/pkg/stt"
)

type chatRequest struct {
	Action  string `json:"action"`
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil || req.Action == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "È richiesta un'azione", "success": false,
		})
	}

	switch req.Action {
	case "talk":
		return s.handleTalk(c, req.ChatID, req.Message)
	case "end":
		return s.handleEnd(c, req.ChatID)
	case "history":
		return s.handleHistory(c, req.ChatID)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Azione sconosciuta: %s", req.Action), "success": false,
		})
	}
}

func (s *Server) handleTalk(c *fiber.Ctx, chatID, message string) error {
	res, err := s.chat.Talk(c.Context(), chatID, message)
	if err != nil {
		return s.talkError(c, err)
	}

	s.AddLog("chat", "talk turn for chat "+res.ChatID)

	payload := fiber.Map{
		"chat_id":  res.ChatID,
		"response": res.Response,
		"success":  true,
	}
	if res.PersonaSwitch {
		payload["personality_changed"] = res.PersonaChanged
	}
	return c.JSON(payload)
}

func (s *Server) talkError(c *fiber.Ctx, err error) error {
	status, payload := talkErrorPayload(err)
	return c.Status(status).JSON(payload)
}

// talkErrorPayload maps orchestrator failures onto the HTTP taxonomy: bad
// input is 400, a structurally broken model reply and upstream failures are
// both 500 with safe messages that never leak provider detail.
func talkErrorPayload(err error) (int, fiber.Map) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return fiber.StatusBadRequest, fiber.Map{
			"error": "Un messaggio è necessario per avviare la chat", "success": false,
		}
	case errors.Is(err, contract.ErrInvalidModelOutput):
		return fiber.StatusInternalServerError, fiber.Map{
			"error": "Risposta del modello non valida (JSON non corretto).", "success": false,
		}
	default:
		log.Error("talk request failed", "error", err)
		return fiber.StatusInternalServerError, fiber.Map{
			"error": "Errore durante l'elaborazione della richiesta", "success": false,
		}
	}
}

func (s *Server) handleEnd(c *fiber.Ctx, chatID string) error {
	if chatID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "chat_id è necessario per terminare una chat", "success": false,
		})
	}

	if err := s.chat.End(chatID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Chat non trovata", "success": false,
		})
	}
	return c.JSON(fiber.Map{"message": "Chat chiusa correttamente", "success": true})
}

func (s *Server) handleHistory(c *fiber.Ctx, chatID string) error {
	if chatID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "un chat_id è necessario per accedere alla storia", "success": false,
		})
	}

	history, err := s.chat.History(chatID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Chat non trovata", "success": false,
		})
	}
	return c.JSON(fiber.Map{"chat_id": chatID, "history": history, "success": true})
}

type adminRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleAdmin(c *fiber.Ctx) error {
	var req adminRequest
	if err := c.BodyParser(&req); err != nil || req.Action == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "È richiesta un'azione", "success": false,
		})
	}

	switch req.Action {
	case "list-chats":
		entries, total := s.chat.AdminList()
		return c.JSON(fiber.Map{
			"full_history": entries,
			"total_chats":  total,
			"success":      true,
		})
	case "delete-chats":
		n := s.chat.AdminDeleteAll()
		s.AddLog("admin", fmt.Sprintf("deleted %d chats", n))
		return c.JSON(fiber.Map{
			"message": fmt.Sprintf("%d chat eliminate", n), "success": true,
		})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Azione sconosciuta: %s", req.Action), "success": false,
		})
	}
}

// readUpload pulls the "audio" multipart field out of the request.
func readUpload(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("audio")
	if err != nil {
		return nil, errors.New("Nessun file audio fornito")
	}
	if fh.Filename == "" {
		return nil, errors.New("Nome file non valido")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("File audio non leggibile")
	}
	defer f.Close()

	return io.ReadAll(f)
}

func (s *Server) handleSTT(c *fiber.Ctx) error {
	audio, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": err.Error(),
		})
	}
	return s.transcribeAndReply(c, audio, false)
}

// handleSTTFast is the lenient upload path: whatever container the client
// recorded is transcoded to the recognizer's format first.
func (s *Server) handleSTTFast(c *fiber.Ctx) error {
	audio, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "error": err.Error(),
		})
	}
	return s.transcribeAndReply(c, audio, true)
}

func (s *Server) transcribeAndReply(c *fiber.Ctx, audio []byte, transcode bool) error {
	res, err := s.transcribe(c, audio, transcode)
	if err != nil {
		status, payload := sttErrorPayload(err)
		return c.Status(status).JSON(payload)
	}

	s.AddLog("stt", fmt.Sprintf("transcribed %d words", res.WordCount))

	return c.JSON(fiber.Map{
		"success":         true,
		"text":            res.Text,
		"language":        res.Language,
		"processing_time": res.Elapsed.Seconds(),
		"engine":          res.Engine,
		"word_count":      res.WordCount,
		"offline":         true,
	})
}

func (s *Server) transcribe(c *fiber.Ctx, audio []byte, transcode bool) (*stt.Result, error) {
	if transcode {
		converted, err := stt.Transcode(c.Context(), audio)
		if err != nil {
			return nil, err
		}
		audio = converted
	}
	return s.engine.Transcribe(c.Context(), audio)
}

// sttErrorPayload maps transcription failures: engine down is 503 with
// installation guidance, bad audio and silence are 200 with success false
// since nothing system-side went wrong.
func sttErrorPayload(err error) (int, fiber.Map) {
	var uerr *stt.UnavailableError
	if errors.As(err, &uerr) {
		return fiber.StatusServiceUnavailable, fiber.Map{
			"success":      false,
			"error":        uerr.Reason,
			"instructions": uerr.Instructions,
		}
	}

	var ferr *stt.FormatError
	if errors.As(err, &ferr) {
		return fiber.StatusOK, fiber.Map{"success": false, "error": ferr.Reason}
	}

	if errors.Is(err, stt.ErrNoSpeech) {
		return fiber.StatusOK, fiber.Map{
			"success": false, "error": "Nessun testo riconosciuto", "text": "",
		}
	}

	log.Error("transcription failed", "error", err)
	return fiber.StatusInternalServerError, fiber.Map{
		"success": false, "error": "Errore durante la trascrizione",
	}
}

// handleChatVoice runs transcription and a talk turn in one round trip. The
// stage field tells the robot client which half failed.
func (s *Server) handleChatVoice(c *fiber.Ctx) error {
	audio, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "stage": "stt", "error": err.Error(),
		})
	}

	res, err := s.engine.Transcribe(c.Context(), audio)
	if err != nil {
		status, payload := sttErrorPayload(err)
		payload["stage"] = "stt"
		return c.Status(status).JSON(payload)
	}

	chatID := c.FormValue("chat_id")
	turn, err := s.chat.Talk(c.Context(), chatID, res.Text)
	if err != nil {
		status, payload := talkErrorPayload(err)
		payload["stage"] = "llm"
		payload["transcription"] = res.Text
		return c.Status(status).JSON(payload)
	}

	s.AddLog("chat", "voice turn for chat "+turn.ChatID)

	payload := fiber.Map{
		"chat_id":       turn.ChatID,
		"response":      turn.Response,
		"transcription": res.Text,
		"success":       true,
	}
	if turn.PersonaSwitch {
		payload["personality_changed"] = turn.PersonaChanged
	}
	return c.JSON(payload)
}

func (s *Server) handleSTTStatus(c *fiber.Ctx) error {
	return c.JSON(s.engine.Status())
}
